package core

// ToggleState is the current output level: false is LOW, true is HIGH
type ToggleState struct {
	on bool
}

// Flip moves to the other level and returns it
func (s *ToggleState) Flip() bool {
	s.on = !s.on
	return s.on
}

// On reports whether the output is HIGH
func (s *ToggleState) On() bool {
	return s.on
}

// OnToggleTimer is the toggle timer interrupt handler.
// It re-arms the timer, flips the state and drives the pin to the new level
// before the state claim ends, so the pin always matches the state.
func (f *Firmware) OnToggleTimer() {
	f.timer.Claim(f.toggle, func(t *ToggleTimer) {
		(*t).Acknowledge()
	})

	f.toggleState.Claim(f.toggle, func(s *ToggleState) {
		on := s.Flip()
		f.led.Claim(f.toggle, func(pin *OutputPin) {
			(*pin).Set(on)
		})
		RecordEvent(EvtToggle, f.board.Cycles.Cycles(), boolToUint(on))
	})
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
