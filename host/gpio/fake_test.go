package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"blinkmon/core"
	"blinkmon/sim"
)

var (
	_ Output         = (*FakeOutput)(nil)
	_ Output         = (*RealOutput)(nil)
	_ core.OutputPin = (*RealOutput)(nil)
)

func TestFakeOutput(t *testing.T) {
	f := NewFakeOutput()
	assert.False(t, f.Get())

	f.Set(true)
	f.Set(false)
	f.Set(true)

	assert.True(t, f.Get())
	assert.Equal(t, []bool{true, false, true}, f.Levels())

	assert.NoError(t, f.Close())
	assert.True(t, f.Closed())
}

func TestFakeOutputMirrorsSimulatedLED(t *testing.T) {
	f := NewFakeOutput()

	cfg := sim.DefaultConfig()
	cfg.LEDMirror = f
	m := sim.New(cfg)
	t.Cleanup(func() { core.SetPreemptHook(nil) })

	m.RunFor(3*core.CoreClockHz + 1000)

	// Firmware bring-up drives the LED low, then every toggle follows
	assert.Equal(t, []bool{false, true, false, true}, f.Levels())
	assert.Equal(t, m.LED.Get(), f.Get())
}
