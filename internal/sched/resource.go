package sched

import "fmt"

// Resource is a shared mutable value guarded by the immediate priority
// ceiling protocol. Its ceiling is the highest priority among the tasks
// declared to access it, computed once at Build and never recomputed.
type Resource[T any] struct {
	name    string
	value   T
	ceiling uint8
	hwCeil  uint8
	global  bool // ceiling maps to hardware 0, which BASEPRI cannot express
	isBound bool
}

// NewResource declares a shared value. It must be registered with
// Builder.AddResource before any task locks it.
func NewResource[T any](name string, initial T) *Resource[T] {
	return &Resource[T]{name: name, value: initial}
}

// Name returns the resource's declared name.
func (r *Resource[T]) Name() string { return r.name }

// Ceiling returns the computed priority ceiling. Valid after Build.
func (r *Resource[T]) Ceiling() uint8 { return r.ceiling }

func (r *Resource[T]) resourceName() string { return r.name }
func (r *Resource[T]) bound() bool          { return r.isBound }

func (r *Resource[T]) bindCeiling(logical, hwVal uint8, global bool) {
	r.ceiling = logical
	r.hwCeil = hwVal
	r.global = global
	r.isBound = true
}

// Shared is the builder-facing face of a Resource of any payload type.
type Shared interface {
	resourceName() string
	bound() bool
	bindCeiling(logical, hwVal uint8, global bool)
	Ceiling() uint8
}

// Lock runs f with exclusive mutable access to r and returns f's result.
//
// While f runs, the executing context's BASEPRI mask is raised to the
// resource's ceiling, so no task that accesses r can preempt; strictly
// higher priorities still do. The previous mask is restored on every exit
// path, including panics. A ceiling at the top of the hardware range cannot
// be expressed as a BASEPRI value and falls back to a global critical
// section. Nested locks on different resources compose by nesting: the mask
// is only ever raised, never lowered, inside f.
func Lock[T, R any](c *Ctx, r *Resource[T], f func(*T) R) R {
	if !r.isBound {
		panic(fmt.Sprintf("sched: resource %q locked before Build bound its ceiling", r.name))
	}
	ctrl := c.app.ctrl
	if r.global {
		state := ctrl.DisableInterrupts()
		defer ctrl.RestoreInterrupts(state)
		return f(&r.value)
	}
	prev := ctrl.Basepri()
	if prev == 0 || r.hwCeil < prev {
		ctrl.SetBasepri(r.hwCeil)
		defer ctrl.SetBasepri(prev)
	}
	return f(&r.value)
}

// ResourceInfo is the read-only view of a bound resource, for tooling.
type ResourceInfo struct {
	Name    string
	Ceiling uint8
}
