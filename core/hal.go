package core

// ToggleTimer is the periodic timer that drives the output pin.
// Platform-specific implementations handle actual hardware control.
type ToggleTimer interface {
	// Acknowledge clears the update interrupt flag and keeps the counter
	// running in auto-reload mode
	Acknowledge()

	// EnableInterrupt lets timer expiries raise the toggle interrupt
	EnableInterrupt()

	// DisableInterrupt stops toggle interrupts; the counter keeps counting
	DisableInterrupt()

	// InterruptEnabled reports whether expiries raise interrupts
	InterruptEnabled() bool

	// SetReload resets the counter to zero and programs a new reload value
	SetReload(ticks uint32)

	// Reload returns the current reload value in timer ticks
	Reload() uint32
}

// OutputPin is a single digital output
type OutputPin interface {
	Set(high bool)
	Get() bool
}

// SerialPort is the command channel UART.
type SerialPort interface {
	// Receive returns the byte held in the receive data register
	Receive() byte

	// Transmit writes one byte and busy-waits until transmission completes
	Transmit(b byte)
}

// CycleCounter is a free-running counter incremented once per core clock cycle
type CycleCounter interface {
	Cycles() uint32
}

// Processor exposes the global interrupt mask and the halt instruction.
type Processor interface {
	DisableInterrupts()
	EnableInterrupts()

	// WaitForInterrupt halts the core until an interrupt is pending.
	// It returns even when interrupts are masked.
	WaitForInterrupt()
}

// ReportSink receives the periodic utilization report
type ReportSink interface {
	Report(r UsageReport)
}

// Board bundles everything the firmware needs from bring-up code.
type Board struct {
	Timer   ToggleTimer
	LED     OutputPin
	Serial  SerialPort
	Cycles  CycleCounter
	CPU     Processor
	Reports ReportSink
}
