//go:build tinygo

package core

import "device/arm"

// ceilingState is the BASEPRI value restored when a claim ends
type ceilingState uintptr

// raiseCeiling masks every interrupt at or below the ceiling through BASEPRI.
// BASEPRI_MAX only ever raises the mask, so nested claims keep the highest level.
func raiseCeiling(ceiling Priority) ceilingState {
	prev := ceilingState(arm.AsmFull("mrs {}, BASEPRI", nil))
	arm.AsmFull("msr BASEPRI_MAX, {value}", map[string]interface{}{
		"value": uint32(NVICPriority(ceiling)),
	})
	return prev
}

// restoreCeiling writes back the BASEPRI value from before the claim
func restoreCeiling(state ceilingState) {
	arm.AsmFull("msr BASEPRI, {value}", map[string]interface{}{
		"value": uint32(state),
	})
}
