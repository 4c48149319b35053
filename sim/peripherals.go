package sim

import (
	"io"

	"blinkmon/core"
)

// ToggleTimer models TIM2: an up-counter with auto-reload at 64 core cycles
// per tick. It implements core.ToggleTimer.
type ToggleTimer struct {
	m *Machine

	uie    bool // update interrupt enable
	uif    bool // update interrupt flag
	reload uint32
	zeroAt uint64 // cycle at which the counter was last zero
	expiry Event
	acks   int
}

func newToggleTimer(m *Machine) *ToggleTimer {
	t := &ToggleTimer{
		m:      m,
		uie:    true,
		reload: core.DefaultToggleReload,
	}
	t.expiry.Handler = t.onExpiry
	return t
}

func (t *ToggleTimer) period() uint64 {
	return uint64(t.reload) * core.CyclesPerToggleTick
}

// arm schedules the next update event. A zero reload stops the counter.
func (t *ToggleTimer) arm() {
	t.m.sched.Cancel(&t.expiry)
	if t.reload == 0 {
		return
	}
	t.expiry.WakeTime = t.zeroAt + t.period()
	t.m.sched.Schedule(&t.expiry)
}

func (t *ToggleTimer) onExpiry(e *Event) uint8 {
	t.uif = true
	if t.uie {
		t.m.nvic.Pend(IRQToggle)
	}
	t.zeroAt = e.WakeTime
	e.WakeTime += t.period()
	return SF_RESCHEDULE
}

// Acknowledge clears the update flag; the counter keeps auto-reloading
func (t *ToggleTimer) Acknowledge() {
	t.uif = false
	t.acks++
}

// EnableInterrupt sets UIE. A flag raised while paused fires right away.
func (t *ToggleTimer) EnableInterrupt() {
	t.uie = true
	if t.uif {
		t.m.nvic.Pend(IRQToggle)
	}
}

// DisableInterrupt clears UIE
func (t *ToggleTimer) DisableInterrupt() {
	t.uie = false
}

// InterruptEnabled reports UIE
func (t *ToggleTimer) InterruptEnabled() bool {
	return t.uie
}

// SetReload resets the counter and writes the auto-reload register
func (t *ToggleTimer) SetReload(ticks uint32) {
	t.reload = ticks
	t.zeroAt = t.m.clock.Now()
	t.arm()
}

// Reload returns the auto-reload register
func (t *ToggleTimer) Reload() uint32 {
	return t.reload
}

// Counter returns the current counter value in ticks
func (t *ToggleTimer) Counter() uint32 {
	return uint32((t.m.clock.Now() - t.zeroAt) / core.CyclesPerToggleTick)
}

// Acks returns how many times the update flag was acknowledged
func (t *ToggleTimer) Acks() int {
	return t.acks
}

// UART models USART2 at 115200 baud, 8N1. Received bytes arrive one frame
// time apart; transmitting blocks the caller for one frame time. The sender
// honours hardware flow control: a byte stays on the wire while the receive
// register is still full.
// It implements core.SerialPort.
type UART struct {
	m *Machine

	line        *FifoBuffer // bytes still on the wire
	arrival     Event
	lastArrival uint64
	dr          byte
	rxne        bool // receive register not empty

	out    io.Writer
	outErr error

	Sent    int
	Dropped int
}

func newUART(m *Machine, out io.Writer) *UART {
	u := &UART{
		m:    m,
		line: NewFifoBuffer(4096),
		out:  out,
	}
	u.arrival.Handler = u.onArrival
	return u
}

// Feed puts bytes on the receive line. Bytes that do not fit the line
// buffer are dropped.
func (u *UART) Feed(data []byte) {
	n := u.line.Write(data)
	u.Dropped += len(data) - n

	if !u.arrival.scheduled && !u.line.IsEmpty() {
		start := u.m.clock.Now()
		if u.lastArrival > start {
			start = u.lastArrival
		}
		u.arrival.WakeTime = start + core.ByteTimeCycles
		u.m.sched.Schedule(&u.arrival)
	}
}

func (u *UART) onArrival(e *Event) uint8 {
	if u.rxne {
		// Receiver busy, hold the line
		e.WakeTime += core.ByteTimeCycles
		return SF_RESCHEDULE
	}

	b, ok := u.line.PopByte()
	if !ok {
		return SF_DONE
	}
	u.dr = b
	u.rxne = true
	u.lastArrival = e.WakeTime
	u.m.nvic.Pend(IRQSerial)

	if u.line.IsEmpty() {
		return SF_DONE
	}
	e.WakeTime += core.ByteTimeCycles
	return SF_RESCHEDULE
}

// Receive reads the data register
func (u *UART) Receive() byte {
	u.rxne = false
	return u.dr
}

// Transmit sends one byte and busy-waits for transmission complete.
// Peripheral events that fall due meanwhile may preempt the caller.
// Output stops at the first write error; the line keeps its timing.
func (u *UART) Transmit(b byte) {
	if u.out != nil && u.outErr == nil {
		if _, err := u.out.Write([]byte{b}); err != nil {
			u.outErr = err
		}
	}
	u.Sent++
	u.m.clock.Advance(core.ByteTimeCycles)
	u.m.catchUp()
}

// Err returns the first error from the output writer
func (u *UART) Err() error {
	return u.outErr
}

// Pin models the LED output. It implements core.OutputPin.
type Pin struct {
	high    bool
	changes int
	mirror  core.OutputPin
}

// Set drives the pin and its mirror
func (p *Pin) Set(high bool) {
	if high != p.high {
		p.changes++
	}
	p.high = high
	if p.mirror != nil {
		p.mirror.Set(high)
	}
}

// Get returns the driven level
func (p *Pin) Get() bool {
	return p.high
}

// Changes returns how many times the level changed
func (p *Pin) Changes() int {
	return p.changes
}

// CPU implements core.Processor on top of the NVIC and the event queue
type CPU struct {
	m     *Machine
	halts uint64
}

// DisableInterrupts sets PRIMASK
func (c *CPU) DisableInterrupts() {
	c.m.nvic.SetPRIMASK(true)
}

// EnableInterrupts clears PRIMASK and runs whatever became pending
func (c *CPU) EnableInterrupts() {
	c.m.nvic.SetPRIMASK(false)
	c.m.nvic.Dispatch()
}

// WaitForInterrupt advances time until an interrupt is pending or the
// machine is told to stop
func (c *CPU) WaitForInterrupt() {
	c.halts++
	for !c.m.nvic.Pending() {
		if c.m.stopped() || !c.m.advance() {
			return
		}
	}
}

// Halts returns how many times the core halted
func (c *CPU) Halts() uint64 {
	return c.halts
}
