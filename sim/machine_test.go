package sim

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkmon/core"
)

const second = core.CoreClockHz

type testMachine struct {
	*Machine
	out     *bytes.Buffer
	reports []core.UsageReport
}

func newTestMachine(t *testing.T) *testMachine {
	t.Helper()
	tm := &testMachine{out: &bytes.Buffer{}}

	cfg := DefaultConfig()
	cfg.Output = tm.out
	cfg.Reports = ReportFunc(func(r core.UsageReport) {
		tm.reports = append(tm.reports, r)
	})
	tm.Machine = New(cfg)

	t.Cleanup(func() {
		core.SetPreemptHook(nil)
		core.ClearEvents()
	})
	return tm
}

// send feeds a line and runs long enough for it to be handled
func (tm *testMachine) send(line string) {
	tm.Feed([]byte(line + "\r"))
	tm.RunFor(uint64(len(line)+1+core.MaxConsoleBytes) * 2 * core.ByteTimeCycles)
}

func TestMachineTogglesEverySecond(t *testing.T) {
	tm := newTestMachine(t)

	tm.RunFor(5*second + 1000)

	assert.Equal(t, 5, tm.LED.Changes())
	assert.True(t, tm.LED.Get(), "odd number of toggles leaves the LED on")
	assert.Equal(t, uint64(5), tm.IRQCount(IRQToggle))
	assert.Equal(t, 5, tm.Timer.Acks())
}

func TestMachineEchoesInput(t *testing.T) {
	tm := newTestMachine(t)

	input := []byte{0x00, 0x07, 'a', 0xff}
	tm.Feed(input)
	tm.RunFor(100 * core.ByteTimeCycles)

	assert.Equal(t, input, tm.out.Bytes())
	assert.Equal(t, len(input), tm.UART.Sent)
}

func TestMachinePeriodCommand(t *testing.T) {
	tm := newTestMachine(t)

	tm.send("period 500")
	assert.Equal(t, uint32(125000), tm.Timer.Reload())
	assert.Contains(t, tm.out.String(), "period 500\n\r>Period updated with new period 500\n\r")

	// Reprogramming restarts the counter, so the first toggle comes 500 ms
	// after the command
	start := tm.LED.Changes()
	tm.RunFor(2 * second)
	assert.Equal(t, 4, tm.LED.Changes()-start)
}

func TestMachinePauseAndStart(t *testing.T) {
	tm := newTestMachine(t)

	tm.send("pause")
	assert.Contains(t, tm.out.String(), ">Paused \n")
	assert.False(t, tm.Timer.InterruptEnabled())

	tm.RunFor(3 * second)
	assert.Equal(t, 0, tm.LED.Changes())

	tm.send("start")
	assert.Contains(t, tm.out.String(), ">Started \n")
	assert.True(t, tm.Timer.InterruptEnabled())

	// The update flag raised while paused fires as soon as the
	// interrupt is enabled again
	assert.Equal(t, 1, tm.LED.Changes())
}

func TestMachineRejectsBadInput(t *testing.T) {
	tm := newTestMachine(t)

	tm.send("period")
	tm.send("period 0")
	tm.send("blink")
	tm.send(strings.Repeat("x", core.LineCapacity+1))

	out := tm.out.String()
	assert.Contains(t, out, ">No period value given \n")
	assert.Contains(t, out, ">Unknown period given \n")
	assert.Contains(t, out, ">Unknown command : blink\n")
	assert.Contains(t, out, ">Input too long \n")
	assert.Equal(t, uint32(core.DefaultToggleReload), tm.Timer.Reload())
}

func TestMachineReportsUtilization(t *testing.T) {
	tm := newTestMachine(t)

	tm.RunFor(3*second + 1000)

	require.Len(t, tm.reports, 3)
	for i, r := range tm.reports {
		assert.InDelta(t, float64(second), float64(r.Working)+float64(r.Sleeping), float64(second)/100)
		assert.Less(t, r.Percent, float32(1))
		if i == 0 {
			// Handler cycles are charged on the next idle iteration, so
			// the first period has not seen any work yet
			assert.Zero(t, r.Working)
			continue
		}
		assert.Greater(t, r.Percent, float32(0))
	}
}

func TestMachineUtilizationRisesUnderLoad(t *testing.T) {
	tm := newTestMachine(t)

	tm.RunFor(second + 1000)
	require.Len(t, tm.reports, 1)
	quiet := tm.reports[0].Percent

	for i := 0; i < 20; i++ {
		tm.Feed([]byte(strings.Repeat("z", core.LineCapacity) + "\r"))
	}
	tm.RunFor(second)
	require.Len(t, tm.reports, 2)

	assert.Greater(t, tm.reports[1].Percent, quiet*10)
	assert.Zero(t, tm.UART.Dropped)
}

func TestMachineToggleGoesThroughConsoleOutput(t *testing.T) {
	tm := newTestMachine(t)

	tm.send("period 1")
	require.Equal(t, uint32(core.TicksPerMs), tm.Timer.Reload())

	// A full unknown line makes the longest reply, keeping the console
	// handler busy for about 10 ms while the toggle timer keeps expiring
	const window = 400000
	before := tm.LED.Changes()
	tm.Feed([]byte(strings.Repeat("x", core.LineCapacity) + "\r"))
	tm.RunFor(window)
	assert.Contains(t, tm.out.String(), ">Unknown command : xxx")

	expected := window / (core.TicksPerMs * core.CyclesPerToggleTick)
	assert.InDelta(t, expected, tm.LED.Changes()-before, 2)
}

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("broken pipe")
}

func TestMachineRecordsOutputError(t *testing.T) {
	w := &failingWriter{}
	cfg := DefaultConfig()
	cfg.Output = w
	m := New(cfg)
	t.Cleanup(func() {
		core.SetPreemptHook(nil)
		core.ClearEvents()
	})

	m.Feed([]byte("pause\r"))
	m.RunFor(200 * core.ByteTimeCycles)

	require.Error(t, m.UART.Err())
	assert.Equal(t, "broken pipe", m.UART.Err().Error())
	assert.Equal(t, 1, w.writes, "output stops after the first error")
	assert.Greater(t, m.UART.Sent, 1, "the line keeps transmitting")
	assert.False(t, m.Timer.InterruptEnabled(), "the command still ran")
}
