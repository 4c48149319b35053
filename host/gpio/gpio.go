// Package gpio mirrors the board LED onto a Linux GPIO line.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single output line. It satisfies core.OutputPin.
type Output interface {
	Set(high bool)
	Get() bool

	// Close releases the line
	Close() error
}

// DefaultChip is the first GPIO chip on a Raspberry Pi
const DefaultChip = "gpiochip0"

// Consumer labels the requested line in the kernel's GPIO listing
const Consumer = "blinkmon-led"
