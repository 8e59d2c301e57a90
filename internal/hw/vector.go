package hw

import "fmt"

// Vector identifies one entry in the interrupt vector table. Numbering
// follows the Cortex-M convention: core exceptions occupy vectors below 16,
// external interrupt lines start at vector 16.
type Vector int

const (
	SVCall  Vector = 11
	PendSV  Vector = 14
	SysTick Vector = 15

	firstExternal = 16

	// MaxExternal is the number of external interrupt lines the controller
	// provides.
	MaxExternal = 64

	// NumVectors is the size of the vector table.
	NumVectors = firstExternal + MaxExternal
)

// IRQ returns the vector bound to external interrupt line n.
func IRQ(n int) Vector {
	if n < 0 || n >= MaxExternal {
		panic(fmt.Sprintf("hw: external interrupt line %d out of range", n))
	}
	return Vector(firstExternal + n)
}

// IsException reports whether v is a core exception rather than an external
// interrupt. Exceptions have fixed vector slots and are not masked through
// the per-interrupt enable registers.
func (v Vector) IsException() bool { return v < firstExternal }

// IRQn returns the external interrupt line of v, or -1 for exceptions.
func (v Vector) IRQn() int {
	if v.IsException() {
		return -1
	}
	return int(v) - firstExternal
}

// ExceptionNamed resolves the name of a priority-configurable core exception.
func ExceptionNamed(name string) (Vector, bool) {
	switch name {
	case "SVCall":
		return SVCall, true
	case "PendSV":
		return PendSV, true
	case "SysTick":
		return SysTick, true
	}
	return 0, false
}

func (v Vector) String() string {
	switch v {
	case SVCall:
		return "SVCall"
	case PendSV:
		return "PendSV"
	case SysTick:
		return "SysTick"
	}
	if v.IsException() {
		return fmt.Sprintf("Exception(%d)", int(v))
	}
	return fmt.Sprintf("IRQ%d", v.IRQn())
}
