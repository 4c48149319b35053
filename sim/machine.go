// Package sim runs the firmware core on a simulated single-core board.
//
// Time is counted in core cycles. Peripherals post events on a sorted queue;
// the idle loop's WFI advances the clock to the next event. In paced mode the
// simulated clock follows wall time and input bytes arrive from a channel, so
// the simulator can stand in for the board on a terminal.
package sim

import (
	"context"
	"io"
	"time"

	"blinkmon/core"
)

// DefaultHandlerCycles approximates interrupt entry, exit and handler body
// without output on a Cortex-M4
const DefaultHandlerCycles = 200

// ReportFunc adapts a function to core.ReportSink
type ReportFunc func(r core.UsageReport)

// Report calls f(r)
func (f ReportFunc) Report(r core.UsageReport) {
	f(r)
}

// Config holds simulator configuration
type Config struct {
	// HandlerCycles is charged on every interrupt entry
	HandlerCycles uint64

	// Output receives every byte the firmware transmits on the USART
	Output io.Writer

	// Reports receives the utilization reports (discarded when nil)
	Reports core.ReportSink

	// LEDMirror is driven together with the simulated LED (optional)
	LEDMirror core.OutputPin

	// Pace ties the simulated clock to wall time
	Pace bool

	// Input delivers received bytes in paced mode
	Input <-chan []byte
}

// DefaultConfig returns a configuration with the default handler cost
func DefaultConfig() Config {
	return Config{
		HandlerCycles: DefaultHandlerCycles,
	}
}

// Machine is a simulated board running the firmware
type Machine struct {
	clock Clock
	sched Scheduler
	nvic  NVIC

	Timer *ToggleTimer
	UART  *UART
	LED   *Pin
	CPU   *CPU

	Firmware *core.Firmware

	report Event
	cfg    Config

	ctx       context.Context
	limit     uint64
	limited   bool
	wallStart time.Time
}

// New builds a machine, brings up its peripherals and creates the firmware.
// Only one machine may run at a time: the firmware's ceiling mask is global.
func New(cfg Config) *Machine {
	m := &Machine{cfg: cfg}

	m.nvic.clock = &m.clock
	m.nvic.entryCycles = cfg.HandlerCycles
	m.nvic.onEntry = func() { m.sched.Dispatch(m.clock.Now()) }

	m.Timer = newToggleTimer(m)
	m.UART = newUART(m, cfg.Output)
	m.LED = &Pin{mirror: cfg.LEDMirror}
	m.CPU = &CPU{m: m}

	reports := cfg.Reports
	if reports == nil {
		reports = ReportFunc(func(core.UsageReport) {})
	}

	m.Firmware = core.New(core.Board{
		Timer:   m.Timer,
		LED:     m.LED,
		Serial:  m.UART,
		Cycles:  &m.clock,
		CPU:     m.CPU,
		Reports: reports,
	})

	m.nvic.Configure(IRQToggle, core.PriorityToggle, m.Firmware.OnToggleTimer)
	m.nvic.Configure(IRQSerial, core.PriorityConsole, m.Firmware.OnSerialReceive)
	m.nvic.Configure(IRQReport, core.PriorityReport, m.Firmware.OnReportTimer)
	core.SetPreemptHook(m.nvic.Dispatch)

	m.Timer.arm()

	m.report.Handler = func(e *Event) uint8 {
		m.nvic.Pend(IRQReport)
		e.WakeTime += core.ReportIntervalCycles
		return SF_RESCHEDULE
	}
	m.report.WakeTime = core.ReportIntervalCycles
	m.sched.Schedule(&m.report)

	return m
}

// Now returns the simulated cycle count
func (m *Machine) Now() uint64 {
	return m.clock.Now()
}

// IRQCount returns how many times an interrupt handler ran
func (m *Machine) IRQCount(irq IRQ) uint64 {
	return m.nvic.Count(irq)
}

// Feed puts bytes on the serial receive line
func (m *Machine) Feed(data []byte) {
	m.UART.Feed(data)
}

// RunFor runs the idle loop for the given number of cycles
func (m *Machine) RunFor(cycles uint64) {
	m.limit = m.clock.Now() + cycles
	m.limited = true
	defer func() { m.limited = false }()

	for m.clock.Now() < m.limit {
		m.Firmware.IdleStep()
	}
}

// Run runs the idle loop until ctx is cancelled
func (m *Machine) Run(ctx context.Context) {
	m.ctx = ctx
	defer func() { m.ctx = nil }()

	m.wallStart = time.Now().Add(-CyclesToDuration(m.clock.Now()))
	for ctx.Err() == nil {
		m.Firmware.IdleStep()
	}
}

// stopped reports whether WFI should give up waiting
func (m *Machine) stopped() bool {
	if m.limited && m.clock.Now() >= m.limit {
		return true
	}
	return m.ctx != nil && m.ctx.Err() != nil
}

// catchUp fires due events and lets pending handlers preempt the caller
func (m *Machine) catchUp() {
	m.sched.Dispatch(m.clock.Now())
	m.nvic.Dispatch()
}

// advance moves time to the next event. It returns false when nothing can
// happen before the machine stops.
func (m *Machine) advance() bool {
	if m.cfg.Pace && m.ctx != nil {
		return m.advancePaced()
	}

	next, ok := m.sched.NextWake()
	if !ok {
		return false
	}
	if m.limited && next > m.limit {
		m.clock.AdvanceTo(m.limit)
		return false
	}
	m.clock.AdvanceTo(next)
	m.sched.Dispatch(m.clock.Now())
	return true
}

// advancePaced sleeps until the wall time of the next event or until input
// arrives
func (m *Machine) advancePaced() bool {
	next, ok := m.sched.NextWake()

	var timeout <-chan time.Time
	if ok {
		timer := time.NewTimer(time.Until(m.wallStart.Add(CyclesToDuration(next))))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-m.ctx.Done():
		return false
	case data, open := <-m.cfg.Input:
		if !open {
			m.cfg.Input = nil
			return true
		}
		m.clock.AdvanceTo(DurationToCycles(time.Since(m.wallStart)))
		m.UART.Feed(data)
	case <-timeout:
		m.clock.AdvanceTo(next)
	}

	m.sched.Dispatch(m.clock.Now())
	return true
}
