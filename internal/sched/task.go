package sched

import (
	"irqsched/internal/hw"
	"irqsched/internal/ring"
)

// TaskID indexes the static task table.
type TaskID int

// Kind says how a task is triggered.
type Kind int

const (
	// Hardware tasks are bound 1:1 to an interrupt or exception vector and
	// run whenever that vector fires.
	Hardware Kind = iota
	// Software tasks are spawned or scheduled programmatically and run via
	// the dispatcher interrupt shared by all tasks of their priority.
	Software
)

func (k Kind) String() string {
	switch k {
	case Hardware:
		return "hardware"
	case Software:
		return "software"
	default:
		return "unknown"
	}
}

// Body is a task body. It runs to completion at its task's priority; it must
// not block. payload is the value passed to Spawn/Schedule (nil for hardware
// tasks).
type Body func(c *Ctx, payload any)

// TaskDecl declares one task of the static table.
type TaskDecl struct {
	Name     string
	Priority uint8 // logical, 0 = lowest
	Kind     Kind
	Capacity int       // software only: max outstanding instances, 1..255
	Binds    hw.Vector // hardware only: the bound vector
	// Schedulable marks a software task as a target of time-delayed
	// scheduling; it gets an instants buffer and forces the timer on.
	Schedulable bool
	Body        Body
}

// slot identifies one pending instance of a software task.
type slot = uint8

// task is a row of the static task table built from a TaskDecl. The row owns
// the task's instance arenas: the free queue holding unused slot indices and
// the fixed inputs/instants buffers indexed by slot. One free queue exists
// per sender so the queues stay single-producer single-consumer.
type task struct {
	decl TaskDecl
	id   TaskID

	fq       [numSenders]*ring.Queue[slot]
	inputs   []any
	instants []uint32 // schedulable tasks only

	// section labels the task's uninitialized arena region; distinct per
	// process, assigned from a monotonic counter.
	section uint64
}

// TaskInfo is the read-only view of a table row, exposed for tooling.
type TaskInfo struct {
	Name     string
	Priority uint8
	Kind     Kind
	Capacity int
	Vector   hw.Vector // bound vector (hardware) or dispatcher vector (software)
	Section  uint64
}
