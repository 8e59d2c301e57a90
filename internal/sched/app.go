// Package sched implements a static, preemptive, priority-based task
// scheduler that runs entirely on a hardware-style interrupt controller.
// Tasks, capacities, priorities and resource ceilings are fixed when the
// App is built; at runtime the only moving parts are fixed-capacity queues
// of slot indices and the interrupt controller's priority logic.
package sched

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"irqsched/internal/hw"
	"irqsched/internal/ring"
)

// numSenders is the number of independent sending contexts feeding each
// free/ready queue. The queue tables keep the sender dimension so the
// single-producer single-consumer discipline survives a future multi-core
// port; on one core there is exactly one sender and same-core producers are
// serialized by short masked sections.
const numSenders = 1

const threadSender = 0

// ErrCapacity is returned by Spawn and Schedule when a task already has its
// full capacity of instances outstanding.
var ErrCapacity = errors.New("task capacity exhausted")

// entry is one ready-queue record: which task to run and which of its slots
// holds the instance state.
type entry struct {
	task TaskID
	slot slot
}

// dispatcher drains the ready queues of one priority level. It is logically
// owned by the interrupt vector bound to that level.
type dispatcher struct {
	priority uint8
	vector   hw.Vector
	rq       [numSenders]*ring.Queue[entry]
}

// App is a built, immutable task table bound to an interrupt controller.
type App struct {
	ctrl *hw.Controller

	tasks  []*task
	byName map[string]TaskID

	dispatchers []*dispatcher // ascending priority
	dispByPrio  map[uint8]*dispatcher

	timerUsed bool
	timerPrio uint8
	tq        *timerQueue

	idle    func(*Ctx)
	started bool

	trace     func(Event)
	csvFile   *os.File
	csvWriter *csv.Writer
}

// Ctx identifies the running context inside a task body and carries the
// spawn, schedule and lock capabilities.
type Ctx struct {
	app      *App
	priority uint8
}

// Priority returns the logical priority of the running context.
func (c *Ctx) Priority() uint8 { return c.priority }

// Now returns the current timer tick.
func (c *Ctx) Now() uint32 { return c.app.ctrl.Now() }

// Spawn requests one execution of a software task, handing it payload.
func (c *Ctx) Spawn(name string, payload any) error {
	return c.app.Spawn(name, payload)
}

// Schedule requests one execution of a schedulable software task at the
// absolute timer tick due.
func (c *Ctx) Schedule(name string, due uint32, payload any) error {
	return c.app.Schedule(name, due, payload)
}

// Now returns the current timer tick.
func (a *App) Now() uint32 { return a.ctrl.Now() }

// Advance moves the timer forward n ticks, running any work that comes due.
func (a *App) Advance(n uint32) { a.ctrl.Advance(n) }

// TimerRunning reports whether the scheduling timer was armed at boot.
func (a *App) TimerRunning() bool { return a.ctrl.TimerRunning() }

func (a *App) softwareTask(op, name string) (*task, error) {
	if !a.started {
		return nil, fmt.Errorf("sched: %s %q before Start", op, name)
	}
	id, ok := a.byName[name]
	if !ok {
		return nil, fmt.Errorf("sched: %s: no task named %q", op, name)
	}
	t := a.tasks[id]
	if t.decl.Kind != Software {
		return nil, fmt.Errorf("sched: %s: task %q is a hardware task; trigger its vector instead", op, name)
	}
	return t, nil
}

// Spawn requests one execution of a software task. The slot is claimed from
// the task's free queue, the payload stored, and the task's dispatcher
// pended; if the caller runs at a lower priority it is preempted on the
// spot. Spawning beyond the task's capacity returns ErrCapacity.
func (a *App) Spawn(name string, payload any) error {
	t, err := a.softwareTask("spawn", name)
	if err != nil {
		return err
	}
	d := a.dispByPrio[t.decl.Priority]

	state := a.ctrl.DisableInterrupts()
	s, ok := t.fq[threadSender].Dequeue()
	if !ok {
		a.ctrl.RestoreInterrupts(state)
		return fmt.Errorf("sched: spawn %q: %w", name, ErrCapacity)
	}
	t.inputs[s] = payload
	d.rq[threadSender].EnqueueUnchecked(entry{task: t.id, slot: s})
	a.emit(EventSpawned, t.decl.Name, int(s), t.decl.Priority)
	a.ctrl.Pend(d.vector) // held until the mask drops
	a.ctrl.RestoreInterrupts(state)
	return nil
}

// Schedule requests one execution of a schedulable software task at the
// absolute timer tick due. Due ticks already reached dispatch on the next
// timer interrupt, which is pended immediately.
func (a *App) Schedule(name string, due uint32, payload any) error {
	t, err := a.softwareTask("schedule", name)
	if err != nil {
		return err
	}
	if !t.decl.Schedulable {
		return fmt.Errorf("sched: schedule: task %q was not declared schedulable", name)
	}

	state := a.ctrl.DisableInterrupts()
	s, ok := t.fq[threadSender].Dequeue()
	if !ok {
		a.ctrl.RestoreInterrupts(state)
		return fmt.Errorf("sched: schedule %q: %w", name, ErrCapacity)
	}
	t.inputs[s] = payload
	t.instants[s] = due
	a.tq.push(due, entry{task: t.id, slot: s})
	if k, _, ok := a.tq.peek(); ok {
		a.ctrl.SetCompare(k.due)
	}
	a.emit(EventScheduled, t.decl.Name, int(s), t.decl.Priority)
	a.ctrl.RestoreInterrupts(state)
	return nil
}

// Trigger pends the vector of a hardware task, as if its interrupt fired.
func (a *App) Trigger(name string) error {
	if !a.started {
		return fmt.Errorf("sched: trigger %q before Start", name)
	}
	id, ok := a.byName[name]
	if !ok {
		return fmt.Errorf("sched: trigger: no task named %q", name)
	}
	t := a.tasks[id]
	if t.decl.Kind != Hardware {
		return fmt.Errorf("sched: trigger: task %q is a software task; spawn it instead", name)
	}
	a.ctrl.Pend(t.decl.Binds)
	return nil
}

// Idle runs the declared idle body, if any, in the thread context. It
// returns when the body returns.
func (a *App) Idle() error {
	if a.idle == nil {
		return errors.New("sched: no idle task declared")
	}
	ctx := Ctx{app: a, priority: 0}
	a.idle(&ctx)
	return nil
}

// timerHandler is bound to the timer vector. It moves every entry whose due
// tick has elapsed into its priority's ready queue, then reprograms the
// compare value to the new head, or disables it when the queue is empty.
func (a *App) timerHandler() {
	for {
		state := a.ctrl.DisableInterrupts()
		k, e, ok := a.tq.peek()
		if !ok {
			a.ctrl.DisableCompare()
			a.ctrl.RestoreInterrupts(state)
			return
		}
		if int32(a.ctrl.Now()-k.due) < 0 {
			a.ctrl.SetCompare(k.due)
			a.ctrl.RestoreInterrupts(state)
			return
		}
		a.tq.pop()
		t := a.tasks[e.task]
		d := a.dispByPrio[t.decl.Priority]
		d.rq[threadSender].EnqueueUnchecked(e)
		a.emit(EventTimerFired, t.decl.Name, int(e.slot), t.decl.Priority)
		a.ctrl.Pend(d.vector)
		a.ctrl.RestoreInterrupts(state)
	}
}

// Tasks returns the static task table for inspection, in declaration order.
func (a *App) Tasks() []TaskInfo {
	infos := make([]TaskInfo, 0, len(a.tasks))
	for _, t := range a.tasks {
		v := t.decl.Binds
		if t.decl.Kind == Software {
			v = a.dispByPrio[t.decl.Priority].vector
		}
		infos = append(infos, TaskInfo{
			Name:     t.decl.Name,
			Priority: t.decl.Priority,
			Kind:     t.decl.Kind,
			Capacity: t.decl.Capacity,
			Vector:   v,
			Section:  t.section,
		})
	}
	return infos
}
