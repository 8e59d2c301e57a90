package sched

import "testing"

func TestTimerQueueOrdering(t *testing.T) {
	q := newTimerQueue()
	q.push(30, entry{task: 0, slot: 0})
	q.push(10, entry{task: 0, slot: 1})
	q.push(10, entry{task: 0, slot: 2}) // same due tick: FIFO
	q.push(20, entry{task: 0, slot: 3})

	want := []slot{1, 2, 3, 0}
	for i, w := range want {
		k, e, ok := q.peek()
		if !ok {
			t.Fatalf("peek #%d: queue empty", i)
		}
		if e.slot != w {
			t.Fatalf("pop #%d: slot %d (due %d), want slot %d", i, e.slot, k.due, w)
		}
		q.pop()
	}
	if q.len() != 0 {
		t.Fatalf("len = %d after draining, want 0", q.len())
	}
}

func TestTimerQueueWraparoundCompare(t *testing.T) {
	q := newTimerQueue()
	// 0xFFFFFFF0 is "sooner" than 0x10 once the counter has wrapped close
	// to the top of its range.
	q.push(0x10, entry{slot: 1})
	q.push(0xFFFFFFF0, entry{slot: 2})

	_, e, ok := q.peek()
	if !ok || e.slot != 2 {
		t.Fatalf("head slot = %d, want 2 (pre-wrap due first)", e.slot)
	}
}

func TestTimerQueuePopEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("pop on empty timer queue did not panic")
		}
	}()
	newTimerQueue().pop()
}
