package sched

import (
	"fmt"
	"sort"
	"sync/atomic"

	"irqsched/internal/hw"
	"irqsched/internal/ring"
)

// sectionIndex hands out distinct labels for the uninitialized buffer
// regions backing task arenas. Process-wide, initialized once, incremented
// atomically; the layout is fixed for the process lifetime so there is no
// teardown.
var sectionIndex atomic.Uint64

func nextSectionIndex() uint64 { return sectionIndex.Add(1) - 1 }

type resourceBinding struct {
	res       Shared
	accessors []string
}

// Builder accumulates the static task/resource table and checks it against
// the device before anything touches a register. Every configuration error
// is reported at Build with the offending task or resource named; a built
// App has no error paths left in its boot sequence.
type Builder struct {
	ctrl      *hw.Controller
	externals []hw.Vector
	decls     []TaskDecl
	resources []resourceBinding
	idle      func(*Ctx)
}

// NewBuilder starts a table for the given controller. externals lists the
// device's usable external interrupt vectors; hardware tasks bind to them
// and dispatchers are allocated from whatever they leave free.
func NewBuilder(ctrl *hw.Controller, externals []hw.Vector) *Builder {
	return &Builder{ctrl: ctrl, externals: externals}
}

// AddTask appends a task declaration.
func (b *Builder) AddTask(d TaskDecl) *Builder {
	b.decls = append(b.decls, d)
	return b
}

// AddResource registers a shared resource along with the names of every
// task that accesses it. The resource's ceiling is the maximum priority
// among the accessors.
func (b *Builder) AddResource(r Shared, accessors ...string) *Builder {
	b.resources = append(b.resources, resourceBinding{res: r, accessors: accessors})
	return b
}

// SetIdle declares an idle-time body. Without one, boot configures the
// processor to sleep whenever no dispatcher is active.
func (b *Builder) SetIdle(body func(*Ctx)) *Builder {
	b.idle = body
	return b
}

// Build validates the whole table and assembles the App. No hardware
// register has been written when Build returns an error.
func (b *Builder) Build() (*App, error) {
	extSet := make(map[hw.Vector]bool, len(b.externals))
	for _, v := range b.externals {
		if v.IsException() {
			return nil, fmt.Errorf("sched: %s listed as an external interrupt", v)
		}
		if extSet[v] {
			return nil, fmt.Errorf("sched: external vector %s listed twice", v)
		}
		extSet[v] = true
	}

	byName := make(map[string]TaskID, len(b.decls))
	bound := make(map[hw.Vector]string)
	timerUsed := false
	var timerPrio uint8
	for i, d := range b.decls {
		if d.Name == "" {
			return nil, fmt.Errorf("sched: task #%d has no name", i)
		}
		if _, dup := byName[d.Name]; dup {
			return nil, fmt.Errorf("sched: duplicate task name %q", d.Name)
		}
		byName[d.Name] = TaskID(i)

		if _, err := b.ctrl.LogicalToHW(d.Priority); err != nil {
			return nil, fmt.Errorf("sched: task %q: %w", d.Name, err)
		}

		switch d.Kind {
		case Hardware:
			if d.Capacity != 0 {
				return nil, fmt.Errorf("sched: hardware task %q cannot have a capacity", d.Name)
			}
			if d.Schedulable {
				return nil, fmt.Errorf("sched: hardware task %q cannot be schedulable", d.Name)
			}
			if d.Binds == 0 {
				return nil, fmt.Errorf("sched: hardware task %q binds no vector", d.Name)
			}
			if !d.Binds.IsException() && !extSet[d.Binds] {
				return nil, fmt.Errorf("sched: task %q binds unknown vector %s", d.Name, d.Binds)
			}
			if prev, dup := bound[d.Binds]; dup {
				return nil, fmt.Errorf("sched: tasks %q and %q both bind %s", prev, d.Name, d.Binds)
			}
			bound[d.Binds] = d.Name
		case Software:
			if d.Binds != 0 {
				return nil, fmt.Errorf("sched: software task %q cannot bind a vector", d.Name)
			}
			if d.Capacity < 1 || d.Capacity > 255 {
				return nil, fmt.Errorf("sched: task %q: capacity must be 1..255, got %d", d.Name, d.Capacity)
			}
			if d.Schedulable {
				if !timerUsed || d.Priority > timerPrio {
					timerPrio = d.Priority
				}
				timerUsed = true
			}
		default:
			return nil, fmt.Errorf("sched: task %q has unknown kind %d", d.Name, d.Kind)
		}
	}
	if timerUsed {
		if owner, dup := bound[hw.SysTick]; dup {
			return nil, fmt.Errorf("sched: task %q binds SysTick but the timer queue needs it", owner)
		}
	}

	// One dispatcher per distinct software priority, each on its own free
	// external vector, assigned in ascending priority order.
	prioSet := make(map[uint8]bool)
	for _, d := range b.decls {
		if d.Kind == Software {
			prioSet[d.Priority] = true
		}
	}
	prios := make([]uint8, 0, len(prioSet))
	for p := range prioSet {
		prios = append(prios, p)
	}
	sort.Slice(prios, func(i, j int) bool { return prios[i] < prios[j] })

	var free []hw.Vector
	for _, v := range b.externals {
		if _, taken := bound[v]; !taken {
			free = append(free, v)
		}
	}
	if len(free) < len(prios) {
		return nil, fmt.Errorf("sched: %d dispatcher vectors needed but only %d external vectors are free",
			len(prios), len(free))
	}

	a := &App{
		ctrl:       b.ctrl,
		byName:     byName,
		dispByPrio: make(map[uint8]*dispatcher, len(prios)),
		timerUsed:  timerUsed,
		timerPrio:  timerPrio,
		idle:       b.idle,
	}
	if timerUsed {
		a.tq = newTimerQueue()
	}

	capByPrio := make(map[uint8]int)
	for i, d := range b.decls {
		t := &task{decl: d, id: TaskID(i)}
		if d.Kind == Software {
			for s := 0; s < numSenders; s++ {
				t.fq[s] = ring.New[slot](d.Capacity)
			}
			t.inputs = make([]any, d.Capacity)
			if d.Schedulable {
				t.instants = make([]uint32, d.Capacity)
			}
			t.section = nextSectionIndex()
			capByPrio[d.Priority] += d.Capacity
		}
		a.tasks = append(a.tasks, t)
	}

	for i, p := range prios {
		d := &dispatcher{priority: p, vector: free[i]}
		for s := 0; s < numSenders; s++ {
			d.rq[s] = ring.New[entry](capByPrio[p])
		}
		a.dispatchers = append(a.dispatchers, d)
		a.dispByPrio[p] = d
	}

	for _, rb := range b.resources {
		name := rb.res.resourceName()
		if rb.res.bound() {
			return nil, fmt.Errorf("sched: resource %q already bound to an app", name)
		}
		if len(rb.accessors) == 0 {
			return nil, fmt.Errorf("sched: resource %q has no accessing tasks", name)
		}
		var ceiling uint8
		for _, acc := range rb.accessors {
			id, ok := byName[acc]
			if !ok {
				return nil, fmt.Errorf("sched: resource %q names unknown task %q", name, acc)
			}
			if p := a.tasks[id].decl.Priority; p > ceiling {
				ceiling = p
			}
		}
		hwVal, err := b.ctrl.LogicalToHW(ceiling)
		if err != nil {
			return nil, fmt.Errorf("sched: resource %q: %w", name, err)
		}
		rb.res.bindCeiling(ceiling, hwVal, hwVal == 0)
	}

	return a, nil
}

// Resources returns the bound resources' names and ceilings, in the order
// they were registered with the builder.
func (b *Builder) Resources() []ResourceInfo {
	infos := make([]ResourceInfo, 0, len(b.resources))
	for _, rb := range b.resources {
		infos = append(infos, ResourceInfo{Name: rb.res.resourceName(), Ceiling: rb.res.Ceiling()})
	}
	return infos
}
