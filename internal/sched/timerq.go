package sched

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// timerQueue holds pending scheduled instances ordered by due tick, ties
// broken by insertion order so equal due times dispatch FIFO. Due times are
// compared modulo the counter width and must lie within half the counter
// range of now.
type timerQueue struct {
	rbt *redblacktree.Tree
	seq uint64
}

// tqKey is used as a key in the red-black tree.
type tqKey struct {
	due uint32
	seq uint64
}

func tqCmp(a, b any) int {
	ka, kb := a.(tqKey), b.(tqKey)
	if d := int32(ka.due - kb.due); d != 0 {
		if d < 0 {
			return -1
		}
		return 1
	}
	switch {
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

func newTimerQueue() *timerQueue {
	return &timerQueue{rbt: redblacktree.NewWith(tqCmp)}
}

func (q *timerQueue) push(due uint32, e entry) {
	q.rbt.Put(tqKey{due: due, seq: q.seq}, e)
	q.seq++
}

// peek returns the earliest-due entry without removing it.
func (q *timerQueue) peek() (tqKey, entry, bool) {
	n := q.rbt.Left()
	if n == nil {
		return tqKey{}, entry{}, false
	}
	return n.Key.(tqKey), n.Value.(entry), true
}

func (q *timerQueue) pop() {
	n := q.rbt.Left()
	if n == nil {
		panic("sched: pop on empty timer queue")
	}
	q.rbt.Remove(n.Key)
}

func (q *timerQueue) len() int { return q.rbt.Size() }
