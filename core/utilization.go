package core

import "strconv"

// UsageReport is one utilization sample
type UsageReport struct {
	Percent  float32 // working / (working + sleeping) * 100
	Working  uint32  // cycles spent in interrupt handlers
	Sleeping uint32  // cycles spent halted
}

// Usage computes the share of cycles spent working, in percent.
// When no time was accounted at all the result is 0, never NaN.
func Usage(working, sleeping uint32) float32 {
	work := float32(working)
	sleep := float32(sleeping)
	if work+sleep == 0 {
		return 0
	}
	return work / (work + sleep) * 100
}

// FormatReport appends "<percent>% is the CPU usage" to dst.
// The percentage uses the shortest decimal form that round-trips (30, 12.5).
func FormatReport(dst []byte, percent float32) []byte {
	dst = strconv.AppendFloat(dst, float64(percent), 'f', -1, 32)
	return append(dst, "% is the CPU usage"...)
}

// IdleStep runs one iteration of the idle loop.
//
// With interrupts masked it charges the cycles since the last wake-up to
// working time, halts, and charges the halted cycles to sleeping time.
// Interrupts are unmasked at the end, so handlers pending from the wake-up
// run next and are charged to working time on the following iteration.
// Cycle deltas are modular, so counter wraparound is harmless.
func (f *Firmware) IdleStep() {
	cycles := f.board.Cycles
	cpu := f.board.CPU

	cpu.DisableInterrupts()

	now := cycles.Cycles()
	workDelta := now - f.lastSample
	f.working.Claim(f.idle, func(w *uint32) {
		*w += workDelta
	})

	before := cycles.Cycles()
	cpu.WaitForInterrupt()
	after := cycles.Cycles()
	f.sleeping.Claim(f.idle, func(s *uint32) {
		*s += after - before
	})

	f.lastSample = cycles.Cycles()
	cpu.EnableInterrupts()
}

// Idle runs the idle loop forever
func (f *Firmware) Idle() {
	for {
		f.IdleStep()
	}
}

// OnReportTimer is the report timer interrupt handler.
// Both accumulators are read and cleared inside one nested claim so the
// report never mixes samples from two periods.
func (f *Firmware) OnReportTimer() {
	var r UsageReport
	f.working.Claim(f.report, func(w *uint32) {
		f.sleeping.Claim(f.report, func(s *uint32) {
			r.Working = *w
			r.Sleeping = *s
			*w = 0
			*s = 0
		})
	})
	r.Percent = Usage(r.Working, r.Sleeping)

	f.reports.Claim(f.report, func(sink *ReportSink) {
		(*sink).Report(r)
	})
	RecordEvent(EvtReport, f.board.Cycles.Cycles(), r.Working)
}

// Accumulated returns the current working and sleeping totals.
// It must be called from the idle context.
func (f *Firmware) Accumulated() (working, sleeping uint32) {
	f.working.Claim(f.idle, func(w *uint32) {
		working = *w
	})
	f.sleeping.Claim(f.idle, func(s *uint32) {
		sleeping = *s
	})
	return working, sleeping
}

// TraceSink writes reports as text lines to a trace channel
type TraceSink struct {
	buf   [48]byte
	write DebugWriter
}

// NewTraceSink creates a sink that formats each report into write
func NewTraceSink(write DebugWriter) *TraceSink {
	return &TraceSink{write: write}
}

// Report formats r and writes it as one line
func (s *TraceSink) Report(r UsageReport) {
	line := FormatReport(s.buf[:0], r.Percent)
	if s.write != nil {
		s.write(line)
	}
}
