package core

// Firmware wires the interrupt handlers and the idle loop to the shared
// resources. Every shared value lives in a Resource whose users are listed
// below; the ceilings follow from those lists.
//
//	resource      users             ceiling
//	toggleState   toggle            toggle
//	led           toggle            toggle
//	timer         toggle, console   toggle
//	line, serial  console           console
//	working,
//	sleeping      idle, report      report
//	reports       report            report
type Firmware struct {
	board Board

	idle    *Context
	report  *Context
	console *Context
	toggle  *Context

	toggleState *Resource[ToggleState]
	led         *Resource[OutputPin]
	timer       *Resource[ToggleTimer]
	serial      *Resource[SerialPort]
	line        *Resource[LineBuffer]
	working     *Resource[uint32]
	sleeping    *Resource[uint32]
	reports     *Resource[ReportSink]

	// lastSample is only touched by the idle loop
	lastSample uint32

	interp *Interpreter
}

// New builds the firmware on top of an initialized board.
// The output pin is driven low to match the initial toggle state.
func New(board Board) *Firmware {
	f := &Firmware{
		board:   board,
		idle:    NewContext("idle", PriorityIdle),
		report:  NewContext("report", PriorityReport),
		console: NewContext("console", PriorityConsole),
		toggle:  NewContext("toggle", PriorityToggle),
	}

	f.toggleState = NewResource("toggle_state", ToggleState{}, f.toggle)
	f.led = NewResource("led", board.LED, f.toggle)
	f.timer = NewResource("toggle_timer", board.Timer, f.toggle, f.console)
	f.serial = NewResource("serial", board.Serial, f.console)
	f.line = NewResource("line", LineBuffer{}, f.console)
	f.working = NewResource("working_time", uint32(0), f.idle, f.report)
	f.sleeping = NewResource("sleeping_time", uint32(0), f.idle, f.report)
	f.reports = NewResource("reports", board.Reports, f.report)

	f.interp = NewInterpreter(consolePrinter{f}, consoleTimer{f})

	board.LED.Set(false)
	f.lastSample = board.Cycles.Cycles()

	return f
}

// Interpreter returns the console command interpreter
func (f *Firmware) Interpreter() *Interpreter {
	return f.interp
}

// consolePrinter prints through the serial resource from the console context
type consolePrinter struct {
	f *Firmware
}

func (p consolePrinter) Print(s string) {
	p.f.serial.Claim(p.f.console, func(port *SerialPort) {
		for i := 0; i < len(s); i++ {
			(*port).Transmit(s[i])
		}
	})
}

func (p consolePrinter) PrintBytes(b []byte) {
	p.f.serial.Claim(p.f.console, func(port *SerialPort) {
		for _, c := range b {
			(*port).Transmit(c)
		}
	})
}

// consoleTimer changes the toggle timer from the console context.
// Each claim raises the console to the toggle priority, so a timer expiry
// can never observe a half-written counter and reload pair.
type consoleTimer struct {
	f *Firmware
}

func (c consoleTimer) Pause() {
	c.f.timer.Claim(c.f.console, func(t *ToggleTimer) {
		(*t).DisableInterrupt()
	})
}

func (c consoleTimer) Start() {
	c.f.timer.Claim(c.f.console, func(t *ToggleTimer) {
		(*t).EnableInterrupt()
	})
}

func (c consoleTimer) SetPeriod(ticks uint32) {
	c.f.timer.Claim(c.f.console, func(t *ToggleTimer) {
		(*t).SetReload(ticks)
	})
}
