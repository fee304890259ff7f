package trigger

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/cjeanneret/BracketGo/internal/debug"
	"github.com/cjeanneret/BracketGo/internal/hw/device"
)

// Lines names the I/O lines wired between the two cameras.
type Lines struct {
	Source   string // output line on the source camera, e.g. "Line2"
	Follower string // input line on the follower camera, e.g. "Line3"
}

// DefaultLines matches the rig's cabling.
var DefaultLines = Lines{Source: "Line2", Follower: "Line3"}

// Coordinator wires the source camera's strobe output to the follower's trigger input.
type Coordinator struct {
	lines Lines
}

// NewCoordinator returns a coordinator for the given cabling.
func NewCoordinator(l Lines) *Coordinator {
	return &Coordinator{lines: l}
}

type step struct {
	cam  device.Camera
	name string
	do   func() error
}

// Setup performs the one-time trigger wiring. The follower's trigger mode is
// off while its source and overlap are changed and is turned on last. Both
// cameras end in single-frame mode so every source frame pairs with exactly
// one follower frame. The first failing step aborts setup.
func (c *Coordinator) Setup(pair device.Pair) error {
	src, fol := pair.Source, pair.Follower

	steps := []step{
		{src, "select output line", func() error { return src.SetEnum(device.LineSelector, c.lines.Source) }},
		{src, "enable 3.3V output", func() error { return src.SetBool(device.V3_3Enable, true) }},

		{fol, "disable trigger mode", func() error { return fol.SetEnum(device.TriggerMode, device.Off) }},
		{fol, "select trigger line", func() error { return fol.SetEnum(device.TriggerSource, c.lines.Follower) }},
		{fol, "allow readout overlap", func() error { return fol.SetEnum(device.TriggerOverlap, device.OverlapReadOut) }},
		{fol, "enable trigger mode", func() error { return fol.SetEnum(device.TriggerMode, device.On) }},

		{src, "single frame acquisition", func() error { return src.SetEnum(device.AcquisitionMode, device.SingleFrame) }},
		{fol, "single frame acquisition", func() error { return fol.SetEnum(device.AcquisitionMode, device.SingleFrame) }},
	}

	for i, s := range steps {
		debug.Step(i+1, s.name+" on "+s.cam.Serial())
		if err := s.do(); err != nil {
			return pkgerrors.Wrapf(err, "trigger setup: %s on %s", s.name, s.cam.Serial())
		}
	}

	debug.With(debug.Fields{
		"source":   src.Serial(),
		"follower": fol.Serial(),
		"lines":    c.lines.Source + "->" + c.lines.Follower,
	}).Info("trigger wiring configured")
	return nil
}
