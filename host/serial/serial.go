package serial

import (
	"errors"
	"fmt"
	"io"

	"blinkmon/core"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipes (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush discards data that was received but not read yet
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate, 115200 on the board's USART2
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the board's serial settings for a device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        core.SerialBaud,
		ReadTimeout: 100,
	}
}

var (
	// ErrLineTooLong is returned for lines the board would reject
	ErrLineTooLong = errors.New("line exceeds board line capacity")

	// ErrLineTerminator is returned for lines that already contain a CR
	ErrLineTerminator = errors.New("line contains a carriage return")
)

// WriteLine sends one command line followed by the board's line terminator.
// Lines the board would reject as too long are refused before sending.
func WriteLine(w io.Writer, line string) error {
	if len(line) > core.LineCapacity {
		return fmt.Errorf("%w: %d > %d bytes", ErrLineTooLong, len(line), core.LineCapacity)
	}
	for i := 0; i < len(line); i++ {
		if line[i] == core.LineTerminator {
			return ErrLineTerminator
		}
	}

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, core.LineTerminator)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// NewlineTranslator turns terminal line endings into the board's line
// terminator: LF becomes CR, and the LF of a CRLF pair is dropped.
type NewlineTranslator struct {
	lastCR bool
}

// Translate appends the translated form of src to dst
func (t *NewlineTranslator) Translate(dst, src []byte) []byte {
	for _, b := range src {
		switch b {
		case '\n':
			if !t.lastCR {
				dst = append(dst, core.LineTerminator)
			}
			t.lastCR = false
		case '\r':
			dst = append(dst, b)
			t.lastCR = true
		default:
			dst = append(dst, b)
			t.lastCR = false
		}
	}
	return dst
}
