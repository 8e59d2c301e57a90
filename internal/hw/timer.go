package hw

import "fmt"

// The free-running timer counts ticks upward and pends the SysTick vector
// when the counter reaches the programmed compare value. Tick comparisons
// are modular, so the counter may wrap; due times must lie within half the
// counter range of now.

// SelectClock chooses the timer's clock source. Must happen before the
// timer is started.
func (c *Controller) SelectClock(src ClockSource) { c.clock = src }

// StartTimer enables the counter. A clock source must be selected first.
func (c *Controller) StartTimer() {
	if c.clock == ClockNone {
		panic("hw: timer started with no clock source selected")
	}
	c.timerOn = true
	c.trace(OpStartTimer, SysTick, 0)
}

// TimerRunning reports whether the counter is enabled.
func (c *Controller) TimerRunning() bool { return c.timerOn }

// Now returns the current counter value.
func (c *Controller) Now() uint32 { return c.now }

// SetCompare programs the compare value. A compare value at or before the
// current counter pends SysTick immediately.
func (c *Controller) SetCompare(v uint32) {
	c.compare = v
	c.compareSet = true
	if c.timerOn && int32(c.now-v) >= 0 {
		c.Pend(SysTick)
	}
}

// DisableCompare turns off the compare interrupt.
func (c *Controller) DisableCompare() { c.compareSet = false }

// CompareArmed reports whether a compare value is programmed.
func (c *Controller) CompareArmed() bool { return c.compareSet }

// Advance moves the counter forward n ticks, pending SysTick if the compare
// value is crossed. n must be nonzero and the timer must be running.
func (c *Controller) Advance(n uint32) {
	if n == 0 {
		panic("hw: Advance(0)")
	}
	if !c.timerOn {
		panic(fmt.Sprintf("hw: Advance(%d) with timer stopped", n))
	}
	old := c.now
	c.now = old + n
	if c.compareSet && c.compare-old <= n {
		c.Pend(SysTick)
	}
}
