//go:build !linux

package gpio

import "errors"

// RealOutput is not available on non-Linux platforms
type RealOutput struct{}

// NewRealOutput returns an error on non-Linux platforms
func NewRealOutput(chip string, offset int) (*RealOutput, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms
func (o *RealOutput) Set(high bool) {}

// Get is not implemented on non-Linux platforms
func (o *RealOutput) Get() bool {
	return false
}

// Close is not implemented on non-Linux platforms
func (o *RealOutput) Close() error {
	return nil
}
