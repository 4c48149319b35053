package sim

import "blinkmon/core"

// IRQ identifies a simulated interrupt line
type IRQ uint8

const (
	IRQToggle IRQ = iota // TIM2 update
	IRQSerial            // USART2 receive
	IRQReport            // TIM5 update
	numIRQ
)

type irqLine struct {
	priority core.Priority
	handler  func()
	enabled  bool
	pending  bool
	count    uint64
}

// NVIC models a nested vectored interrupt controller on a single core.
//
// A pending line runs when its priority is above both the running handler and
// the ceiling mask of the firmware claims, and PRIMASK is clear. Handlers run
// to completion unless a more urgent line becomes runnable while they advance
// the clock or end a claim.
type NVIC struct {
	lines   [numIRQ]irqLine
	primask bool
	active  []core.Priority

	clock       *Clock
	entryCycles uint64
	onEntry     func()
}

// Configure sets the priority and handler of a line and enables it
func (n *NVIC) Configure(irq IRQ, priority core.Priority, handler func()) {
	n.lines[irq] = irqLine{
		priority: priority,
		handler:  handler,
		enabled:  true,
	}
}

// Enable unmasks a line
func (n *NVIC) Enable(irq IRQ) {
	n.lines[irq].enabled = true
}

// Disable masks a line; pending state is kept
func (n *NVIC) Disable(irq IRQ) {
	n.lines[irq].enabled = false
}

// Pend marks a line pending
func (n *NVIC) Pend(irq IRQ) {
	n.lines[irq].pending = true
}

// IsPending reports whether a line is pending
func (n *NVIC) IsPending(irq IRQ) bool {
	return n.lines[irq].pending
}

// Pending reports whether any enabled line is pending, regardless of masks.
// This is the wake-up condition of WFI.
func (n *NVIC) Pending() bool {
	for i := range n.lines {
		if n.lines[i].enabled && n.lines[i].pending {
			return true
		}
	}
	return false
}

// Count returns how many times a line's handler was entered
func (n *NVIC) Count(irq IRQ) uint64 {
	return n.lines[irq].count
}

// Running returns the priority of the innermost active handler, 0 in idle
func (n *NVIC) Running() core.Priority {
	if len(n.active) == 0 {
		return core.PriorityIdle
	}
	return n.active[len(n.active)-1]
}

// SetPRIMASK sets or clears the global interrupt mask
func (n *NVIC) SetPRIMASK(masked bool) {
	n.primask = masked
}

// next picks the most urgent runnable line. Equal priorities go to the
// lower IRQ number.
func (n *NVIC) next() (IRQ, bool) {
	floor := n.Running()
	if ceiling := core.CurrentCeiling(); ceiling > floor {
		floor = ceiling
	}

	best := IRQ(0)
	found := false
	for i := range n.lines {
		l := &n.lines[i]
		if !l.enabled || !l.pending || l.priority <= floor {
			continue
		}
		if !found || l.priority > n.lines[best].priority {
			best = IRQ(i)
			found = true
		}
	}
	return best, found
}

// Dispatch runs every runnable handler, most urgent first
func (n *NVIC) Dispatch() {
	for !n.primask {
		irq, ok := n.next()
		if !ok {
			return
		}

		l := &n.lines[irq]
		l.pending = false
		l.count++
		n.active = append(n.active, l.priority)

		if n.clock != nil {
			n.clock.Advance(n.entryCycles)
		}
		if n.onEntry != nil {
			n.onEntry()
		}
		l.handler()

		n.active = n.active[:len(n.active)-1]
	}
}
