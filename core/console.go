package core

// LineCapacity is the longest accepted command line, terminator excluded
const LineCapacity = 100

// LineTerminator ends a command line (Enter on a serial terminal)
const LineTerminator = '\r'

// LineBuffer accumulates one command line.
//
// A line may hold exactly LineCapacity bytes. Bytes past that are dropped and
// the line is marked as overflowed; the console rejects it when the
// terminator arrives. Reset only clears the length and the overflow mark; the
// next line overwrites the old bytes from index 0.
type LineBuffer struct {
	buf      [LineCapacity]byte
	n        uint8
	overflow bool
}

// Push appends b. It returns false and marks the line as overflowed when the
// buffer is already full.
func (l *LineBuffer) Push(b byte) bool {
	if int(l.n) >= LineCapacity {
		l.overflow = true
		return false
	}
	l.buf[l.n] = b
	l.n++
	return true
}

// Line returns the accumulated bytes. The slice aliases the buffer.
func (l *LineBuffer) Line() []byte {
	return l.buf[:l.n]
}

// Len returns the number of accumulated bytes
func (l *LineBuffer) Len() int {
	return int(l.n)
}

// Overflowed reports whether bytes were dropped since the last reset
func (l *LineBuffer) Overflowed() bool {
	return l.overflow
}

// Reset starts a new line
func (l *LineBuffer) Reset() {
	l.n = 0
	l.overflow = false
}

// OnSerialReceive is the USART receive interrupt handler.
//
// The received byte is appended to the line, or on a terminator the line is
// executed and the buffer reset. Every byte is then echoed verbatim. Output is
// written with a blocking transmit, so one invocation can spend up to
// MaxConsoleCycles in this handler; the toggle interrupt still preempts it
// outside of timer claims.
func (f *Firmware) OnSerialReceive() {
	var b byte
	f.serial.Claim(f.console, func(port *SerialPort) {
		b = (*port).Receive()
	})
	RecordEvent(EvtReceive, f.board.Cycles.Cycles(), uint32(b))

	if b == LineTerminator {
		f.interp.out.Print(msgLineBreak)
		f.line.Claim(f.console, func(l *LineBuffer) {
			if l.Overflowed() {
				f.interp.out.Print(msgLineTooLong)
			} else {
				RecordEvent(EvtCommand, f.board.Cycles.Cycles(), uint32(l.Len()))
				f.interp.Execute(l.Line())
			}
			l.Reset()
		})
	} else {
		f.line.Claim(f.console, func(l *LineBuffer) {
			l.Push(b)
		})
	}

	f.serial.Claim(f.console, func(port *SerialPort) {
		(*port).Transmit(b)
	})
}
