package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"blinkmon/core"
)

func TestClockAdvance(t *testing.T) {
	var c Clock

	c.Advance(100)
	assert.Equal(t, uint64(100), c.Now())

	c.AdvanceTo(50)
	assert.Equal(t, uint64(100), c.Now(), "clock must not move backwards")

	c.AdvanceTo(1 << 33)
	assert.Equal(t, uint64(1<<33), c.Now())
	assert.Equal(t, uint32(0), c.Cycles(), "firmware sees a wrapping 32-bit counter")
}

func TestCycleDurationConversion(t *testing.T) {
	assert.Equal(t, time.Second, CyclesToDuration(core.CoreClockHz))
	assert.Equal(t, time.Millisecond, CyclesToDuration(core.CoreClockHz/1000))
	assert.Equal(t, uint64(core.CoreClockHz), DurationToCycles(time.Second))
	assert.Equal(t, uint64(0), DurationToCycles(-time.Second))

	// Long runs must not overflow
	day := 24 * time.Hour
	assert.Equal(t, day, CyclesToDuration(DurationToCycles(day)))
}
