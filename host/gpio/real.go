//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"blinkmon/host/logger"
)

// RealOutput drives an LED on an actual GPIO line
type RealOutput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line

	mu   sync.Mutex
	high bool
}

// NewRealOutput requests offset on chip as an output, initially low
func NewRealOutput(chip string, offset int) (*RealOutput, error) {
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	l, err := c.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request LED line %d: %w", offset, err)
	}

	return &RealOutput{
		chip: c,
		line: l,
	}, nil
}

// Set drives the line. A failed write is logged; the LED is a mirror only.
func (o *RealOutput) Set(high bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	value := 0
	if high {
		value = 1
	}
	if err := o.line.SetValue(value); err != nil {
		logger.Warn().Err(err).Msg("failed to set LED line")
		return
	}
	o.high = high
}

// Get returns the last level driven
func (o *RealOutput) Get() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.high
}

// Close drives the line low, returns it to input and releases the chip
func (o *RealOutput) Close() error {
	var errs []error

	if o.line != nil {
		if err := o.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive LED low: %w", err))
		}
		if err := o.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED line: %w", err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED line: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
