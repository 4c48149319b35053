package mcu

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"blinkmon/core"
	"blinkmon/host/logger"
	"blinkmon/host/serial"
)

// ErrNotConnected is returned when the board is used before Connect
var ErrNotConnected = errors.New("not connected to board")

// MCU represents a console connection to a blinkmon board
type MCU struct {
	// Serial port
	port serial.Port

	// Board output is copied here
	out io.Writer

	// Command dictionary known to the firmware
	dictionary *core.CommandRegistry

	mu        sync.Mutex
	connected bool
	closing   bool
	done      chan struct{}
	readErr   error
}

// NewMCU creates a new MCU instance (not yet connected). Everything the
// board transmits is copied to out.
func NewMCU(out io.Writer) *MCU {
	return &MCU{
		out:        out,
		dictionary: core.NewInterpreter(nil, nil).Commands(),
	}
}

// Connect connects to a board via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to a board with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	// Drop whatever the board sent before we were listening
	if err := port.Flush(); err != nil {
		logger.Debug().Err(err).Msg("flush failed")
	}

	m.Attach(port)
	return nil
}

// Attach starts using an already open port
func (m *MCU) Attach(port serial.Port) {
	m.mu.Lock()
	m.port = port
	m.connected = true
	m.closing = false
	m.readErr = nil
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.readLoop(port, m.done)
}

// readLoop copies board output until the port fails or is closed
func (m *MCU) readLoop(port serial.Port, done chan struct{}) {
	defer close(done)

	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			if _, werr := m.out.Write(buf[:n]); werr != nil {
				m.setReadErr(fmt.Errorf("write board output: %w", werr))
				return
			}
		}
		if err == nil || errors.Is(err, io.EOF) {
			// A read timeout shows up as an empty read
			if n == 0 && m.isClosing() {
				return
			}
			continue
		}
		if !m.isClosing() {
			m.setReadErr(fmt.Errorf("read board output: %w", err))
		}
		return
	}
}

func (m *MCU) isClosing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closing
}

func (m *MCU) setReadErr(err error) {
	m.mu.Lock()
	m.readErr = err
	m.connected = false
	m.mu.Unlock()
	logger.Error().Err(err).Msg("console connection lost")
}

// Close closes the connection to the board
func (m *MCU) Close() error {
	m.mu.Lock()
	port := m.port
	done := m.done
	m.closing = true
	m.connected = false
	m.mu.Unlock()

	if port == nil {
		return nil
	}
	err := port.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		logger.Warn().Msg("reader did not stop")
	}
	return err
}

// SendLine sends one command line. The terminator is appended.
func (m *MCU) SendLine(line string) error {
	m.mu.Lock()
	port := m.port
	connected := m.connected
	readErr := m.readErr
	m.mu.Unlock()

	if !connected {
		if readErr != nil {
			return fmt.Errorf("%w: %v", ErrNotConnected, readErr)
		}
		return ErrNotConnected
	}

	logger.Debug().Str("line", line).Msg("sending")
	return serial.WriteLine(port, line)
}

// IsConnected returns whether the board is connected
func (m *MCU) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Commands returns the command names the firmware understands, sorted
func (m *MCU) Commands() []string {
	names := make([]string, 0, m.dictionary.Count())
	for _, cmd := range m.dictionary.All() {
		names = append(names, cmd.Name)
	}
	sort.Strings(names)
	return names
}

// PrintDictionary prints the firmware's commands with their usage
func (m *MCU) PrintDictionary(w io.Writer) {
	fmt.Fprintln(w, "\n=== Board Commands ===")
	fmt.Fprint(w, m.dictionary.Dictionary())
	fmt.Fprintf(w, "Lines are limited to %d bytes.\n", core.LineCapacity)
	fmt.Fprintln(w, "======================")
}
