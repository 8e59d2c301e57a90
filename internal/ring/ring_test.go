package ring

import "testing"

func TestFIFOOrder(t *testing.T) {
	q := New[int](4)
	for i := 0; i < 4; i++ {
		if !q.Enqueue(i) {
			t.Fatalf("Enqueue(%d) = false, want true", i)
		}
	}
	for i := 0; i < 4; i++ {
		v, ok := q.Dequeue()
		if !ok || v != i {
			t.Fatalf("Dequeue() = %d,%v, want %d,true", v, ok, i)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Error("Dequeue on empty queue = true, want false")
	}
}

func TestWrapAround(t *testing.T) {
	q := New[int](3) // capacity deliberately not a power of two
	q.Enqueue(1)
	q.Enqueue(2)
	q.Dequeue()
	q.Enqueue(3)
	q.Enqueue(4)
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}
	want := []int{2, 3, 4}
	for _, w := range want {
		if v, _ := q.Dequeue(); v != w {
			t.Errorf("Dequeue = %d, want %d", v, w)
		}
	}
}

// A long-lived queue must stay FIFO through arbitrarily many head wraps:
// keeping the queue partially full while churning makes every element cross
// the buffer seam many times over.
func TestLongLivedQueueKeepsFIFO(t *testing.T) {
	q := New[int](3)
	next := 0
	for ; next < 2; next++ {
		q.EnqueueUnchecked(next)
	}
	for expect := 0; expect < 10000; expect++ {
		q.EnqueueUnchecked(next)
		next++
		v, ok := q.Dequeue()
		if !ok || v != expect {
			t.Fatalf("after %d ops: Dequeue = %d,%v, want %d,true", next, v, ok, expect)
		}
		if q.Len() != 2 {
			t.Fatalf("after %d ops: Len = %d, want 2", next, q.Len())
		}
	}
}

func TestFullRejects(t *testing.T) {
	q := New[int](2)
	q.Enqueue(1)
	q.Enqueue(2)
	if q.Enqueue(3) {
		t.Error("Enqueue on full queue = true, want false")
	}
	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}
}

func TestUncheckedViolationsPanic(t *testing.T) {
	mustPanic := func(name string, f func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		f()
	}
	full := New[int](1)
	full.EnqueueUnchecked(1)
	mustPanic("EnqueueUnchecked on full queue", func() { full.EnqueueUnchecked(2) })
	mustPanic("DequeueUnchecked on empty queue", func() { New[int](1).DequeueUnchecked() })
	mustPanic("New with zero capacity", func() { New[int](0) })
}
