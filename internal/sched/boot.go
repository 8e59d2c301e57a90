package sched

import (
	"errors"

	"irqsched/internal/hw"
)

// Start runs the boot sequence. It must run once, before any task executes;
// every step's ordering below is a correctness requirement. All priorities
// were validated at Build, so no step here can fail except taking the
// controller twice.
func (a *App) Start() error {
	if a.started {
		return errors.New("sched: app already started")
	}

	// Interrupts stay off for the whole sequence; nothing below is
	// interrupt-safe on its own.
	state := a.ctrl.DisableInterrupts()

	// Every slot index enters circulation exactly once. Capacity is a
	// build-time constant, so the unchecked fill cannot overflow.
	for _, t := range a.tasks {
		if t.decl.Kind != Software {
			continue
		}
		for s := 0; s < numSenders; s++ {
			for i := 0; i < t.decl.Capacity; i++ {
				t.fq[s].EnqueueUnchecked(slot(i))
			}
		}
	}

	// Exclusive ownership of the controller's register file, obtainable
	// exactly once process-wide.
	if err := a.ctrl.Take(); err != nil {
		a.ctrl.RestoreInterrupts(state)
		return err
	}

	// Vector table.
	for _, t := range a.tasks {
		if t.decl.Kind == Hardware {
			a.ctrl.RegisterHandler(t.decl.Binds, a.hardwareHandler(t))
		}
	}
	for _, d := range a.dispatchers {
		d := d
		a.ctrl.RegisterHandler(d.vector, func() { d.run(a) })
	}
	if a.timerUsed {
		a.ctrl.RegisterHandler(hw.SysTick, a.timerHandler)
	}

	// Program priority, then unmask, per interrupt. Changing the priority
	// of an already-unmasked, pended interrupt is implementation-defined
	// on the hardware, so the order within each iteration matters.
	for _, d := range a.dispatchers {
		a.ctrl.SetPriority(d.vector, a.mustHW(d.priority))
		a.ctrl.Unmask(d.vector)
	}
	for _, t := range a.tasks {
		if t.decl.Kind != Hardware || t.decl.Binds.IsException() {
			continue
		}
		a.ctrl.SetPriority(t.decl.Binds, a.mustHW(t.decl.Priority))
		a.ctrl.Unmask(t.decl.Binds)
	}

	// Fixed core exceptions are programmed through the separate
	// exception-priority interface and need no unmasking.
	for _, t := range a.tasks {
		if t.decl.Kind == Hardware && t.decl.Binds.IsException() {
			a.ctrl.SetExceptionPriority(t.decl.Binds, a.mustHW(t.decl.Priority))
		}
	}

	// Arm the scheduling timer only if some task uses time-delayed
	// dispatch. The timer runs at the highest schedulable priority.
	if a.timerUsed {
		a.ctrl.SetExceptionPriority(hw.SysTick, a.mustHW(a.timerPrio))
		a.ctrl.SelectClock(hw.ClockCore)
		a.ctrl.StartTimer()
	}

	// With no idle-time task, returning from the last active handler drops
	// the core into its low-power wait state instead of an idle loop.
	if a.idle == nil {
		a.ctrl.SetSleepOnExit(true)
	}

	a.started = true
	a.emit(EventBooted, "", -1, 0)
	a.ctrl.RestoreInterrupts(state)
	return nil
}

// mustHW translates a logical priority that Build already validated.
func (a *App) mustHW(p uint8) uint8 {
	v, err := a.ctrl.LogicalToHW(p)
	if err != nil {
		panic("sched: priority escaped build-time validation: " + err.Error())
	}
	return v
}
