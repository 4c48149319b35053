package core

// Reference clock tree: HSI without PLL. Cycle figures derived from
// CoreClockHz hold at 16MHz only; the simulator runs at this clock, while a
// board whose runtime enables the PLL uses ConsoleBudgetCycles.
const (
	CoreClockHz = 16000000 // HSI, no PLL

	TogglePrescaler = 64
	ToggleTickHz    = CoreClockHz / TogglePrescaler // 250kHz toggle timer tick
	TicksPerMs      = ToggleTickHz / 1000

	DefaultToggleReload = ToggleTickHz // 1s

	ReportIntervalCycles = CoreClockHz // utilization report every second

	SerialBaud = 115200
)

// Longest replies to one line. The unknown-command reply repeats the whole
// line; the period reply repeats the raw argument, leading zeros included.
const (
	maxUnknownReply = len(msgUnknownCommand) + LineCapacity + 1
	maxPeriodReply  = len(msgPeriodUpdated) + LineCapacity - len("period ") + 1
)

// Console busy-wait budget. Each received byte can cause at most the line
// break, the longest reply and the echo itself to be transmitted from inside
// the handler.
const (
	MaxConsoleBytes  = len(msgLineBreak) + max(maxUnknownReply, maxPeriodReply) + 1
	ByteTimeCycles   = CoreClockHz * 10 / SerialBaud // 8N1 frame at 16MHz
	MaxConsoleCycles = MaxConsoleBytes * ByteTimeCycles
)

// ConsoleBudgetCycles returns the console busy-wait bound in cycles of a core
// running at coreHz
func ConsoleBudgetCycles(coreHz uint32) uint32 {
	return uint32(MaxConsoleBytes) * uint32(uint64(coreHz)*10/SerialBaud)
}

// PeriodFromMs converts a period in milliseconds to toggle timer ticks.
// It reports false when the result is zero or does not fit the reload register.
func PeriodFromMs(ms uint32) (uint32, bool) {
	if ms == 0 || ms > ^uint32(0)/TicksPerMs {
		return 0, false
	}
	return ms * TicksPerMs, true
}

// PeriodToMs converts toggle timer ticks back to milliseconds
func PeriodToMs(ticks uint32) uint32 {
	return ticks / TicksPerMs
}

// CyclesPerToggleTick is the number of core cycles per toggle timer tick
const CyclesPerToggleTick = TogglePrescaler
