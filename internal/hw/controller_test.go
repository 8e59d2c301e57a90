package hw

import "testing"

func mustController(t *testing.T, bits int) *Controller {
	t.Helper()
	c, err := NewController(bits)
	if err != nil {
		t.Fatalf("NewController(%d): %v", bits, err)
	}
	return c
}

func mustHW(t *testing.T, c *Controller, p uint8) uint8 {
	t.Helper()
	v, err := c.LogicalToHW(p)
	if err != nil {
		t.Fatalf("LogicalToHW(%d): %v", p, err)
	}
	return v
}

func TestLogicalToHW(t *testing.T) {
	c := mustController(t, 4)
	cases := []struct {
		logical uint8
		want    uint8
	}{
		{0, 0xF0},
		{1, 0xE0},
		{14, 0x10},
		{15, 0x00},
	}
	for _, tc := range cases {
		got, err := c.LogicalToHW(tc.logical)
		if err != nil {
			t.Fatalf("LogicalToHW(%d): %v", tc.logical, err)
		}
		if got != tc.want {
			t.Errorf("LogicalToHW(%d) = %#02x, want %#02x", tc.logical, got, tc.want)
		}
	}
	if _, err := c.LogicalToHW(16); err == nil {
		t.Error("LogicalToHW(16) with 4 priority bits succeeded, want error")
	}
}

func TestNewControllerRejectsBadBits(t *testing.T) {
	for _, bits := range []int{0, 9, -1} {
		if _, err := NewController(bits); err == nil {
			t.Errorf("NewController(%d) succeeded, want error", bits)
		}
	}
}

func TestTakeIsExclusive(t *testing.T) {
	c := mustController(t, 3)
	if err := c.Take(); err != nil {
		t.Fatalf("first Take: %v", err)
	}
	if err := c.Take(); err == nil {
		t.Error("second Take succeeded, want error")
	}
}

func TestHigherPriorityPreemptsInline(t *testing.T) {
	c := mustController(t, 4)
	var order []string
	c.RegisterHandler(IRQ(1), func() { order = append(order, "high") })
	c.RegisterHandler(IRQ(0), func() {
		order = append(order, "low-enter")
		c.Pend(IRQ(1)) // strictly higher priority: must run before we return
		order = append(order, "low-exit")
	})
	c.SetPriority(IRQ(0), mustHW(t, c, 1))
	c.Unmask(IRQ(0))
	c.SetPriority(IRQ(1), mustHW(t, c, 3))
	c.Unmask(IRQ(1))

	c.Pend(IRQ(0))

	want := []string{"low-enter", "high", "low-exit"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestEqualPriorityDoesNotPreempt(t *testing.T) {
	c := mustController(t, 4)
	var order []string
	c.RegisterHandler(IRQ(1), func() { order = append(order, "peer") })
	c.RegisterHandler(IRQ(0), func() {
		order = append(order, "first-enter")
		c.Pend(IRQ(1)) // same priority: tail-chained, not nested
		order = append(order, "first-exit")
	})
	hwPrio := mustHW(t, c, 2)
	c.SetPriority(IRQ(0), hwPrio)
	c.Unmask(IRQ(0))
	c.SetPriority(IRQ(1), hwPrio)
	c.Unmask(IRQ(1))

	c.Pend(IRQ(0))

	want := []string{"first-enter", "first-exit", "peer"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBasepriMasksAtAndBelow(t *testing.T) {
	c := mustController(t, 4)
	ran := map[string]bool{}
	c.RegisterHandler(IRQ(0), func() { ran["p2"] = true })
	c.RegisterHandler(IRQ(1), func() { ran["p3"] = true })
	c.SetPriority(IRQ(0), mustHW(t, c, 2))
	c.Unmask(IRQ(0))
	c.SetPriority(IRQ(1), mustHW(t, c, 3))
	c.Unmask(IRQ(1))

	c.SetBasepri(mustHW(t, c, 2))
	c.Pend(IRQ(0))
	c.Pend(IRQ(1))
	if ran["p2"] {
		t.Error("priority 2 ran despite BASEPRI at ceiling 2")
	}
	if !ran["p3"] {
		t.Error("priority 3 did not run; BASEPRI at 2 must not mask it")
	}

	c.SetBasepri(0)
	if !ran["p2"] {
		t.Error("priority 2 did not run after BASEPRI dropped")
	}
}

func TestPrimaskDefersEverything(t *testing.T) {
	c := mustController(t, 4)
	ran := false
	c.RegisterHandler(IRQ(0), func() { ran = true })
	c.SetPriority(IRQ(0), mustHW(t, c, 15))
	c.Unmask(IRQ(0))

	state := c.DisableInterrupts()
	c.Pend(IRQ(0))
	if ran {
		t.Fatal("handler ran with PRIMASK set")
	}
	c.RestoreInterrupts(state)
	if !ran {
		t.Fatal("handler did not run after PRIMASK cleared")
	}
}

func TestMaskedInterruptStaysPending(t *testing.T) {
	c := mustController(t, 4)
	ran := false
	c.RegisterHandler(IRQ(0), func() { ran = true })
	c.SetPriority(IRQ(0), mustHW(t, c, 5))

	c.Pend(IRQ(0)) // not enabled yet
	if ran {
		t.Fatal("handler ran while masked")
	}
	if !c.Pending(IRQ(0)) {
		t.Fatal("pending bit lost while masked")
	}
	c.Unmask(IRQ(0))
	if !ran {
		t.Fatal("handler did not run on unmask")
	}
}

func TestTimerCompareFires(t *testing.T) {
	c := mustController(t, 4)
	fired := 0
	c.RegisterHandler(SysTick, func() { fired++; c.DisableCompare() })
	c.SetExceptionPriority(SysTick, mustHW(t, c, 3))
	c.SelectClock(ClockCore)
	c.StartTimer()

	c.SetCompare(5)
	c.Advance(4)
	if fired != 0 {
		t.Fatalf("fired = %d before compare reached, want 0", fired)
	}
	c.Advance(1)
	if fired != 1 {
		t.Fatalf("fired = %d at compare, want 1", fired)
	}
	c.Advance(100)
	if fired != 1 {
		t.Fatalf("fired = %d with compare disabled, want 1", fired)
	}
}

func TestTimerCompareInPastFiresImmediately(t *testing.T) {
	c := mustController(t, 4)
	fired := false
	c.RegisterHandler(SysTick, func() { fired = true; c.DisableCompare() })
	c.SelectClock(ClockCore)
	c.StartTimer()
	c.Advance(50)

	c.SetCompare(10)
	if !fired {
		t.Fatal("compare in the past did not fire immediately")
	}
}

func TestTimerCompareWrapsAround(t *testing.T) {
	c := mustController(t, 4)
	fired := false
	c.RegisterHandler(SysTick, func() { fired = true; c.DisableCompare() })
	c.SelectClock(ClockCore)
	c.StartTimer()

	c.Advance(0xFFFFFFE0)
	c.SetCompare(c.Now() + 40) // wraps past zero
	c.Advance(39)
	if fired {
		t.Fatal("fired before wrapped compare value")
	}
	c.Advance(1)
	if !fired {
		t.Fatal("did not fire at wrapped compare value")
	}
}

func TestStartTimerNeedsClockSource(t *testing.T) {
	c := mustController(t, 4)
	defer func() {
		if recover() == nil {
			t.Error("StartTimer without a clock source did not panic")
		}
	}()
	c.StartTimer()
}
