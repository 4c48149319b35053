package core

// fakeTimer is a test implementation of ToggleTimer
type fakeTimer struct {
	enabled      bool
	reload       uint32
	counter      uint32
	acks         int
	reloadWrites int
}

func (t *fakeTimer) Acknowledge()           { t.acks++ }
func (t *fakeTimer) EnableInterrupt()       { t.enabled = true }
func (t *fakeTimer) DisableInterrupt()      { t.enabled = false }
func (t *fakeTimer) InterruptEnabled() bool { return t.enabled }
func (t *fakeTimer) Reload() uint32         { return t.reload }

func (t *fakeTimer) SetReload(ticks uint32) {
	t.counter = 0
	t.reload = ticks
	t.reloadWrites++
}

// fakePin is a test implementation of OutputPin
type fakePin struct {
	high   bool
	writes int
}

func (p *fakePin) Set(high bool) { p.high = high; p.writes++ }
func (p *fakePin) Get() bool     { return p.high }

// fakeSerial is a test implementation of SerialPort
type fakeSerial struct {
	rx byte
	tx []byte
}

func (s *fakeSerial) Receive() byte   { return s.rx }
func (s *fakeSerial) Transmit(b byte) { s.tx = append(s.tx, b) }
func (s *fakeSerial) output() string  { return string(s.tx) }
func (s *fakeSerial) clearOutput()    { s.tx = s.tx[:0] }

// fakeCycles is a manually advanced cycle counter
type fakeCycles struct {
	now uint32
}

func (c *fakeCycles) Cycles() uint32 { return c.now }

// fakeCPU advances the cycle counter by sleepCycles on each halt
type fakeCPU struct {
	cycles      *fakeCycles
	sleepCycles uint32
	masked      bool
	halts       int
	haltMasked  bool
}

func (c *fakeCPU) DisableInterrupts() { c.masked = true }
func (c *fakeCPU) EnableInterrupts()  { c.masked = false }

func (c *fakeCPU) WaitForInterrupt() {
	c.halts++
	c.haltMasked = c.masked
	c.cycles.now += c.sleepCycles
}

// fakeSink records reports
type fakeSink struct {
	reports []UsageReport
}

func (s *fakeSink) Report(r UsageReport) { s.reports = append(s.reports, r) }

// testBoard bundles the fakes so tests can inspect them
type testBoard struct {
	timer  *fakeTimer
	pin    *fakePin
	serial *fakeSerial
	cycles *fakeCycles
	cpu    *fakeCPU
	sink   *fakeSink
}

func newTestFirmware() (*Firmware, *testBoard) {
	cycles := &fakeCycles{}
	tb := &testBoard{
		timer:  &fakeTimer{enabled: true, reload: DefaultToggleReload},
		pin:    &fakePin{},
		serial: &fakeSerial{},
		cycles: cycles,
		cpu:    &fakeCPU{cycles: cycles},
		sink:   &fakeSink{},
	}
	fw := New(Board{
		Timer:   tb.timer,
		LED:     tb.pin,
		Serial:  tb.serial,
		Cycles:  tb.cycles,
		CPU:     tb.cpu,
		Reports: tb.sink,
	})
	return fw, tb
}

// sendLine feeds each byte of s followed by a carriage return to the console
func sendLine(fw *Firmware, tb *testBoard, s string) {
	for i := 0; i < len(s); i++ {
		tb.serial.rx = s[i]
		fw.OnSerialReceive()
	}
	tb.serial.rx = LineTerminator
	fw.OnSerialReceive()
}
