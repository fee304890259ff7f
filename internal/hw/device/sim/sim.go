// Package sim is an in-memory implementation of the camera SDK boundary.
// Every call is recorded in a shared Recorder so tests can assert ordering
// across both cameras of a pair.
package sim

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/BracketGo/internal/debug"
	"github.com/cjeanneret/BracketGo/internal/hw/device"
)

// Call is one recorded SDK call.
type Call struct {
	Serial  string
	Op      string
	Feature device.Feature
	Value   interface{}
}

func (c Call) String() string {
	if c.Feature == "" {
		return fmt.Sprintf("%s %s", c.Serial, c.Op)
	}
	return fmt.Sprintf("%s %s %s=%v", c.Serial, c.Op, c.Feature, c.Value)
}

// Recorder collects calls from every camera sharing it.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	debug.Trace("sim: %s", c)
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the recorded calls matching op, in order.
func (r *Recorder) Ops(op string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets every recorded call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// System is a simulated SDK system holding a fixed set of cameras.
type System struct {
	cameras map[string]*Camera
	closed  bool
}

// NewSystem creates a system exposing the given cameras.
func NewSystem(cams ...*Camera) *System {
	s := &System{cameras: make(map[string]*Camera)}
	for _, c := range cams {
		s.cameras[c.serial] = c
	}
	return s
}

// NewRig creates a system with two default color cameras sharing one recorder.
func NewRig(sourceSerial, followerSerial string) (*System, *Recorder) {
	rec := &Recorder{}
	return NewSystem(NewCamera(sourceSerial, rec), NewCamera(followerSerial, rec)), rec
}

// NewRigSystem is NewRig for callers that don't inspect the recorded calls.
func NewRigSystem(sourceSerial, followerSerial string) *System {
	sys, _ := NewRig(sourceSerial, followerSerial)
	return sys
}

func (s *System) CameraBySerial(serial string) (device.Camera, error) {
	c, ok := s.cameras[serial]
	if !ok {
		return nil, fmt.Errorf("serial %s: %w", serial, device.ErrNotFound)
	}
	return c, nil
}

func (s *System) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *System) Closed() bool {
	return s.closed
}

// NewOpenPair returns two initialised cameras sharing a recorder, with the
// Init calls already cleared from the recording.
func NewOpenPair(sourceSerial, followerSerial string) (src, fol *Camera, rec *Recorder) {
	rec = &Recorder{}
	src = NewCamera(sourceSerial, rec)
	fol = NewCamera(followerSerial, rec)
	_ = src.Init()
	_ = fol.Init()
	rec.Reset()
	return src, fol, rec
}

// Pair returns the cameras as a device.Pair.
func Pair(src, fol *Camera) device.Pair {
	return device.Pair{Source: src, Follower: fol}
}
