package core

// Priority is a logical execution priority. Higher values preempt lower ones;
// the idle loop runs at priority 0.
type Priority uint8

// MaxPriority is the highest logical priority a Cortex-M with 4 NVIC
// priority bits can express
const MaxPriority Priority = 15

// Execution context priorities
const (
	PriorityIdle    Priority = 0
	PriorityReport  Priority = 1
	PriorityConsole Priority = 2
	PriorityToggle  Priority = 3
)

// NVICPriority converts a logical priority to the 8-bit NVIC priority field.
// Larger logical priorities map to numerically smaller (more urgent) values.
// Priority 0 maps to 0, which as a BASEPRI value masks nothing.
func NVICPriority(p Priority) uint8 {
	if p == 0 {
		return 0
	}
	if p > MaxPriority {
		p = MaxPriority
	}
	return uint8(MaxPriority+1-p) << 4
}

// Context is one execution context: the idle loop or an interrupt handler.
// A context is only ever used from its own handler.
type Context struct {
	name      string
	priority  Priority
	threshold Priority // effective priority, raised while inside a claim
}

// NewContext creates a context running at the given priority
func NewContext(name string, priority Priority) *Context {
	return &Context{
		name:      name,
		priority:  priority,
		threshold: priority,
	}
}

// Name returns the context name
func (c *Context) Name() string {
	return c.name
}

// Priority returns the static priority of the context
func (c *Context) Priority() Priority {
	return c.priority
}

// Threshold returns the effective priority, which is raised inside claims
func (c *Context) Threshold() Priority {
	return c.threshold
}

// Resource is a shared value guarded by a priority ceiling.
//
// The ceiling is the highest priority among the contexts declared as users
// when the resource is created. Claiming raises the caller to the ceiling, so
// no other user can preempt the claim and observe a partial update. Because
// the ceiling covers every user, a claim never has to wait.
type Resource[T any] struct {
	name    string
	value   T
	ceiling Priority
	users   []*Context
}

// NewResource creates a resource owned by the given contexts
func NewResource[T any](name string, value T, users ...*Context) *Resource[T] {
	r := &Resource[T]{
		name:  name,
		value: value,
		users: users,
	}
	for _, ctx := range users {
		if ctx.priority > r.ceiling {
			r.ceiling = ctx.priority
		}
	}
	return r
}

// Name returns the resource name
func (r *Resource[T]) Name() string {
	return r.name
}

// Ceiling returns the priority ceiling computed from the resource users
func (r *Resource[T]) Ceiling() Priority {
	return r.ceiling
}

// Claim runs fn with exclusive access to the value.
//
// If ctx already runs at or above the ceiling (it is the highest-priority
// user, or it is inside another claim at that level) fn runs directly.
// Otherwise the interrupt mask is raised to the ceiling for the duration of fn.
// Claiming from a context that was not declared as a user panics: the ceiling
// would not cover it.
func (r *Resource[T]) Claim(ctx *Context, fn func(v *T)) {
	if !r.usedBy(ctx) {
		panic("core: context " + ctx.name + " is not a user of resource " + r.name)
	}

	if ctx.threshold >= r.ceiling {
		fn(&r.value)
		return
	}

	prev := ctx.threshold
	state := raiseCeiling(r.ceiling)
	ctx.threshold = r.ceiling

	fn(&r.value)

	ctx.threshold = prev
	restoreCeiling(state)
}

func (r *Resource[T]) usedBy(ctx *Context) bool {
	for _, u := range r.users {
		if u == ctx {
			return true
		}
	}
	return false
}
