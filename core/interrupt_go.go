//go:build !tinygo

package core

// ceilingState is the mask level restored when a claim ends
type ceilingState Priority

var (
	// emulatedMask stands in for BASEPRI on regular Go
	emulatedMask Priority

	// preemptHook runs after a claim lowers the mask (simulator dispatch)
	preemptHook func()
)

// raiseCeiling masks every context at or below the given priority
func raiseCeiling(ceiling Priority) ceilingState {
	prev := ceilingState(emulatedMask)
	if ceiling > emulatedMask {
		emulatedMask = ceiling
	}
	return prev
}

// restoreCeiling restores the mask and gives pending interrupts a chance to run
func restoreCeiling(state ceilingState) {
	emulatedMask = Priority(state)
	if preemptHook != nil {
		preemptHook()
	}
}

// CurrentCeiling returns the emulated mask level. Interrupts whose priority
// is at or below it stay pending.
func CurrentCeiling() Priority {
	return emulatedMask
}

// SetPreemptHook registers a function called whenever a claim ends.
// The simulator uses it to deliver interrupts that were held off by the claim.
func SetPreemptHook(fn func()) {
	preemptHook = fn
}
