package core

// DebugWriter writes one line to the trace channel
type DebugWriter func(line []byte)

// Event captures an interrupt-level event for post-mortem analysis
type Event struct {
	Type  uint8  // Event type code
	Clock uint32 // Cycle counter at event
	Value uint32 // Context-dependent value
}

// Event type codes
const (
	EvtToggle  = 1 // Toggle timer fired, value = new level
	EvtReceive = 2 // Byte received, value = byte
	EvtCommand = 3 // Line executed, value = line length
	EvtReport  = 4 // Utilization report, value = working cycles
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(line []byte) {} // No-op by default

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled bool = false

	// Event ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]Event
	eventRingHead uint8
	eventsEnabled bool = true
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to ITM, semihosting, logs, etc.
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		writer = func(line []byte) {}
	}
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled {
		debugPrintln([]byte(msg))
	}
}

// SetEventsEnabled turns event capture on or off
func SetEventsEnabled(enabled bool) {
	eventsEnabled = enabled
}

// RecordEvent captures an event in the ring buffer.
// Handlers of every priority record events, so the ring is updated with all
// prioritized interrupts masked.
func RecordEvent(eventType uint8, clock, value uint32) {
	if !eventsEnabled {
		return
	}
	state := raiseCeiling(MaxPriority)
	idx := eventRingHead
	eventRing[idx] = Event{
		Type:  eventType,
		Clock: clock,
		Value: value,
	}
	eventRingHead = (idx + 1) % EventRingSize
	restoreCeiling(state)
}

// Events returns the recorded events, oldest first
func Events() []Event {
	events := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Type == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// EventName returns the display name of an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtToggle:
		return "TOGGLE"
	case EvtReceive:
		return "RX"
	case EvtCommand:
		return "COMMAND"
	case EvtReport:
		return "REPORT"
	default:
		return "UNKNOWN"
	}
}

// DumpEvents writes the event ring to the debug writer
// Call this after stopping the interrupt sources
func DumpEvents() {
	debugPrintln([]byte("[EVENTS] === Event Ring Dump ==="))
	for _, evt := range Events() {
		debugPrintln([]byte("[EVENTS] " + EventName(evt.Type) +
			" clock=" + utoa(evt.Clock) +
			" value=" + utoa(evt.Value)))
	}
	debugPrintln([]byte("[EVENTS] === End Dump ==="))
}

// ClearEvents clears the event ring
func ClearEvents() {
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
