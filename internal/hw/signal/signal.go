// Package signal drives the rig's "busy" output: a GPIO line held high
// while a capture round is in flight, typically wired to a tally LED or
// an illumination enable input.
package signal

import (
	"sync"

	"github.com/cjeanneret/BracketGo/internal/debug"
)

// Line is a single digital output.
type Line interface {
	Assert() error
	Release() error
	Close() error
}

// New returns the busy line for the given BCM pin.
// pin 0 disables the feature. If mock is true, a MockLine is returned
// (development on a PC, tests); otherwise the real Raspberry Pi driver.
func New(mock bool, pin int) (Line, error) {
	if pin <= 0 {
		debug.Verbose("Busy line disabled")
		return Nop{}, nil
	}
	if mock {
		debug.Info("Using MOCK busy line on pin %d (development mode)", pin)
		return &MockLine{Pin: pin}, nil
	}
	return NewRPiLine(pin)
}

// Hold asserts l and returns a func that releases it.
func Hold(l Line) (release func() error, err error) {
	if err := l.Assert(); err != nil {
		return func() error { return nil }, err
	}
	return l.Release, nil
}

// Nop is a Line that does nothing.
type Nop struct{}

func (Nop) Assert() error  { return nil }
func (Nop) Release() error { return nil }
func (Nop) Close() error   { return nil }

// MockLine records every level change.
type MockLine struct {
	Pin int

	mu          sync.Mutex
	asserted    bool
	transitions []bool
	closed      bool
}

func (m *MockLine) set(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	debug.GPIO("busy line", m.Pin, v)
	m.asserted = v
	m.transitions = append(m.transitions, v)
}

func (m *MockLine) Assert() error {
	m.set(true)
	return nil
}

func (m *MockLine) Release() error {
	m.set(false)
	return nil
}

func (m *MockLine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.asserted = false
	return nil
}

// Asserted reports the current level.
func (m *MockLine) Asserted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.asserted
}

// Transitions returns every level written, in order.
func (m *MockLine) Transitions() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.transitions...)
}
