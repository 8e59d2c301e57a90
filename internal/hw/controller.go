package hw

import "fmt"

// ClockSource selects what feeds the free-running timer.
type ClockSource int

const (
	ClockNone ClockSource = iota
	ClockCore
	ClockExternal
)

// RegOp identifies a register write for the optional trace hook.
type RegOp int

const (
	OpSetPriority RegOp = iota
	OpUnmask
	OpMask
	OpSetExceptionPriority
	OpStartTimer
)

func (op RegOp) String() string {
	switch op {
	case OpSetPriority:
		return "SetPriority"
	case OpUnmask:
		return "Unmask"
	case OpMask:
		return "Mask"
	case OpSetExceptionPriority:
		return "SetExceptionPriority"
	case OpStartTimer:
		return "StartTimer"
	default:
		return "Unknown"
	}
}

// Controller simulates a single-core interrupt controller with a limited
// priority-bit width, BASEPRI-style priority masking, a PRIMASK global
// disable and a free-running compare timer. Lower hardware priority values
// win, as on the real register format.
//
// All methods must be called from a single goroutine. Preemption is modeled
// by nested calls: pending a strictly higher-priority vector from inside a
// handler runs that handler before Pend returns, on the same stack, exactly
// like a hardware interrupt entry.
type Controller struct {
	prioBits int

	enabled [NumVectors]bool
	pending [NumVectors]bool
	prio    [NumVectors]uint8
	handler [NumVectors]func()

	primask bool
	basepri uint8
	active  []uint8 // hardware priorities of nested handlers, innermost last

	sleepOnExit bool
	taken       bool

	timerOn    bool
	clock      ClockSource
	now        uint32
	compare    uint32
	compareSet bool

	// Trace, when non-nil, observes register writes in program order.
	Trace func(op RegOp, v Vector, value uint8)
}

// NewController builds a controller with the given priority-bit width.
func NewController(prioBits int) (*Controller, error) {
	if prioBits < 1 || prioBits > 8 {
		return nil, fmt.Errorf("hw: priority bits must be in 1..8, got %d", prioBits)
	}
	return &Controller{prioBits: prioBits}, nil
}

// PriorityBits returns the device's priority-bit width.
func (c *Controller) PriorityBits() int { return c.prioBits }

// MaxLogical returns the highest representable logical priority.
func (c *Controller) MaxLogical() uint8 { return uint8(1<<c.prioBits - 1) }

// LogicalToHW translates a logical priority (0 = lowest) into the inverted,
// left-aligned hardware format. Priorities that need more bits than the
// device has must be rejected here, before any register is written; the
// hardware would silently truncate them.
func (c *Controller) LogicalToHW(p uint8) (uint8, error) {
	if p > c.MaxLogical() {
		return 0, fmt.Errorf("hw: priority %d does not fit in %d priority bits (max %d)",
			p, c.prioBits, c.MaxLogical())
	}
	return (c.MaxLogical() - p) << (8 - c.prioBits), nil
}

// Take claims exclusive ownership of the controller's register file. It
// succeeds exactly once per controller.
func (c *Controller) Take() error {
	if c.taken {
		return fmt.Errorf("hw: controller peripherals already taken")
	}
	c.taken = true
	return nil
}

// DisableInterrupts sets PRIMASK and returns the previous state, so nested
// critical sections restore correctly.
func (c *Controller) DisableInterrupts() bool {
	prev := c.primask
	c.primask = true
	return prev
}

// RestoreInterrupts restores a PRIMASK state saved by DisableInterrupts.
// Re-enabling delivers any interrupts that pended while masked.
func (c *Controller) RestoreInterrupts(state bool) {
	c.primask = state
	if !state {
		c.flush()
	}
}

// Basepri returns the current BASEPRI mask (0 = no masking).
func (c *Controller) Basepri() uint8 { return c.basepri }

// SetBasepri writes the BASEPRI mask. Vectors whose hardware priority is
// numerically >= the mask are held pending. Lowering the mask delivers
// anything it was holding back.
func (c *Controller) SetBasepri(v uint8) {
	c.basepri = v
	c.flush()
}

// RegisterHandler installs the handler for a vector.
func (c *Controller) RegisterHandler(v Vector, h func()) {
	c.checkVector(v)
	c.handler[v] = h
}

// SetPriority programs the priority register of an external interrupt.
// The value is in hardware format; see LogicalToHW.
func (c *Controller) SetPriority(v Vector, hwPrio uint8) {
	c.checkVector(v)
	if v.IsException() {
		panic(fmt.Sprintf("hw: %s is an exception, use SetExceptionPriority", v))
	}
	c.prio[v] = hwPrio
	c.trace(OpSetPriority, v, hwPrio)
}

// SetExceptionPriority programs the priority of a core exception through the
// system control block, which is a separate interface from the per-interrupt
// priority registers.
func (c *Controller) SetExceptionPriority(v Vector, hwPrio uint8) {
	c.checkVector(v)
	if !v.IsException() {
		panic(fmt.Sprintf("hw: %s is not an exception", v))
	}
	c.prio[v] = hwPrio
	c.trace(OpSetExceptionPriority, v, hwPrio)
}

// Unmask enables an external interrupt. Its priority must already be
// programmed: changing the priority of an unmasked, pended interrupt is
// implementation-defined on real hardware.
func (c *Controller) Unmask(v Vector) {
	c.checkVector(v)
	if v.IsException() {
		panic(fmt.Sprintf("hw: %s is an exception and cannot be unmasked", v))
	}
	c.enabled[v] = true
	c.trace(OpUnmask, v, 0)
	c.flush()
}

// Mask disables an external interrupt without clearing its pending bit.
func (c *Controller) Mask(v Vector) {
	c.checkVector(v)
	if v.IsException() {
		panic(fmt.Sprintf("hw: %s is an exception and cannot be masked", v))
	}
	c.enabled[v] = false
	c.trace(OpMask, v, 0)
}

// Pend marks a vector pending. If it is enabled and strictly outranks the
// current execution priority, its handler runs before Pend returns.
func (c *Controller) Pend(v Vector) {
	c.checkVector(v)
	c.pending[v] = true
	c.flush()
}

// Pending reports whether a vector is currently held pending.
func (c *Controller) Pending(v Vector) bool {
	c.checkVector(v)
	return c.pending[v]
}

// SetSleepOnExit sets the wait-for-interrupt-on-handler-exit control bit.
func (c *Controller) SetSleepOnExit(on bool) { c.sleepOnExit = on }

// SleepOnExit returns the wait-on-exit control bit.
func (c *Controller) SleepOnExit() bool { return c.sleepOnExit }

func (c *Controller) checkVector(v Vector) {
	if v < 0 || v >= NumVectors {
		panic(fmt.Sprintf("hw: vector %d out of range", int(v)))
	}
}

func (c *Controller) trace(op RegOp, v Vector, value uint8) {
	if c.Trace != nil {
		c.Trace(op, v, value)
	}
}

// execPriority is the current effective execution priority: the innermost
// active handler's hardware priority, further restricted by BASEPRI.
// 256 means thread level (anything can preempt).
func (c *Controller) execPriority() int {
	p := 256
	if n := len(c.active); n > 0 {
		p = int(c.active[n-1])
	}
	if c.basepri != 0 && int(c.basepri) < p {
		p = int(c.basepri)
	}
	return p
}

// flush delivers pending vectors, highest hardware priority first, until
// none outranks the current execution priority. Handlers run nested; a
// handler that pends a yet higher priority vector re-enters here.
func (c *Controller) flush() {
	for {
		if c.primask {
			return
		}
		v, best := -1, 256
		for i := 0; i < NumVectors; i++ {
			if !c.pending[i] || c.handler[i] == nil {
				continue
			}
			if !Vector(i).IsException() && !c.enabled[i] {
				continue
			}
			if int(c.prio[i]) < best {
				best, v = int(c.prio[i]), i
			}
		}
		if v < 0 || best >= c.execPriority() {
			return
		}
		c.pending[v] = false
		c.active = append(c.active, c.prio[v])
		c.handler[v]()
		c.active = c.active[:len(c.active)-1]
	}
}
