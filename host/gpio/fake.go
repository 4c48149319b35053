package gpio

import "sync"

// FakeOutput is a test double that records every level driven
type FakeOutput struct {
	mu     sync.Mutex
	levels []bool
	closed bool
}

// NewFakeOutput creates a FakeOutput
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the level
func (f *FakeOutput) Set(high bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = append(f.levels, high)
}

// Get returns the last level, low before the first Set
func (f *FakeOutput) Get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.levels) == 0 {
		return false
	}
	return f.levels[len(f.levels)-1]
}

// Levels returns every level driven so far
func (f *FakeOutput) Levels() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.levels...)
}

// Close marks the output as closed
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called
func (f *FakeOutput) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
