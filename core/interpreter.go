package core

import "unicode/utf8"

// Console responses. Every line starts with '>'.
const (
	msgParseError     = ">Can not parse input \n"
	msgPaused         = ">Paused \n"
	msgStarted        = ">Started \n"
	msgNoPeriod       = ">No period value given \n"
	msgUnknownPeriod  = ">Unknown period given \n"
	msgPeriodUpdated  = ">Period updated with new period "
	msgUnknownCommand = ">Unknown command : "
	msgLineTooLong    = ">Input too long \n"
	msgLineBreak      = "\n\r"
)

// Printer writes console output
type Printer interface {
	Print(s string)
	PrintBytes(b []byte)
}

// TimerControl is the part of the toggle timer the console may change
type TimerControl interface {
	// Pause stops toggle interrupts without stopping the counter
	Pause()

	// Start re-enables toggle interrupts
	Start()

	// SetPeriod resets the counter and programs a new reload value in ticks
	SetPeriod(ticks uint32)
}

// Interpreter parses console lines and dispatches verbs.
// It keeps no state between lines.
type Interpreter struct {
	out      Printer
	timer    TimerControl
	commands *CommandRegistry
}

// NewInterpreter creates an interpreter with the pause, start and period verbs
func NewInterpreter(out Printer, timer TimerControl) *Interpreter {
	in := &Interpreter{
		out:      out,
		timer:    timer,
		commands: NewCommandRegistry(),
	}

	in.commands.Register("pause", "", in.handlePause)
	in.commands.Register("start", "", in.handleStart)
	in.commands.Register("period", "<milliseconds>", in.handlePeriod)

	return in
}

// Commands returns the verb registry
func (in *Interpreter) Commands() *CommandRegistry {
	return in.commands
}

// Execute runs one line (without its terminator)
func (in *Interpreter) Execute(line []byte) {
	if !utf8.Valid(line) {
		in.out.Print(msgParseError)
		return
	}

	args := NewArgs(line)
	verb, _ := args.Next()

	cmd, ok := in.commands.Lookup(verb)
	if !ok {
		in.out.Print(msgUnknownCommand)
		in.out.PrintBytes(verb)
		in.out.Print("\n")
		return
	}

	cmd.Handler(&args)
}

// handlePause disables the toggle interrupt
// Format: pause
func (in *Interpreter) handlePause(args *Args) {
	in.timer.Pause()
	in.out.Print(msgPaused)
}

// handleStart re-enables the toggle interrupt
// Format: start
func (in *Interpreter) handleStart(args *Args) {
	in.timer.Start()
	in.out.Print(msgStarted)
}

// handlePeriod reprograms the toggle period
// Format: period <milliseconds>
func (in *Interpreter) handlePeriod(args *Args) {
	value, ok := args.Next()
	if !ok {
		in.out.Print(msgNoPeriod)
		return
	}

	ms, ok := parseUint32(value)
	if !ok {
		in.out.Print(msgUnknownPeriod)
		return
	}

	ticks, ok := PeriodFromMs(ms)
	if !ok {
		in.out.Print(msgUnknownPeriod)
		return
	}

	in.timer.SetPeriod(ticks)

	in.out.Print(msgPeriodUpdated)
	in.out.PrintBytes(value)
	in.out.Print("\n")
}
