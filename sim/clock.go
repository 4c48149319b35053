package sim

import (
	"time"

	"blinkmon/core"
)

// Clock is the simulated core clock. It implements core.CycleCounter.
type Clock struct {
	now uint64
}

// Now returns the full 64-bit cycle count
func (c *Clock) Now() uint64 {
	return c.now
}

// Cycles returns the 32-bit cycle counter the firmware sees
func (c *Clock) Cycles() uint32 {
	return uint32(c.now)
}

// Advance moves the clock forward
func (c *Clock) Advance(cycles uint64) {
	c.now += cycles
}

// AdvanceTo moves the clock to t unless it is already past it
func (c *Clock) AdvanceTo(t uint64) {
	if t > c.now {
		c.now = t
	}
}

// CyclesToDuration converts core cycles to wall time
func CyclesToDuration(cycles uint64) time.Duration {
	secs := cycles / core.CoreClockHz
	rem := cycles % core.CoreClockHz
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/core.CoreClockHz)
}

// DurationToCycles converts wall time to core cycles
func DurationToCycles(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	secs := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return secs*core.CoreClockHz + rem*core.CoreClockHz/uint64(time.Second)
}
