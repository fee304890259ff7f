package signal

import (
	"fmt"

	"github.com/cjeanneret/BracketGo/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiLine drives a Raspberry Pi GPIO pin through go-rpio.
type RPiLine struct {
	pin rpio.Pin
}

// NewRPiLine maps GPIO memory and configures pin as a low output.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiLine(pin int) (*RPiLine, error) {
	debug.Info("Initializing busy line on GPIO %d (go-rpio)", pin)

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	p := rpio.Pin(pin)
	p.Output()
	p.Low()
	debug.GPIO("setup output", pin, false)

	return &RPiLine{pin: p}, nil
}

func (r *RPiLine) Assert() error {
	debug.GPIO("busy line", int(r.pin), true)
	r.pin.High()
	return nil
}

func (r *RPiLine) Release() error {
	debug.GPIO("busy line", int(r.pin), false)
	r.pin.Low()
	return nil
}

// Close drives the pin low, resets it to input (safe state) and unmaps GPIO memory.
func (r *RPiLine) Close() error {
	debug.Trace("GPIO Close (busy line %d)", r.pin)
	r.pin.Low()
	r.pin.Input()
	return rpio.Close()
}
