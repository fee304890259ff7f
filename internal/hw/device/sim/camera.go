package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cjeanneret/BracketGo/internal/hw/device"
)

// Operation names recorded by the simulated camera.
const (
	OpInit      = "Init"
	OpDeInit    = "DeInit"
	OpSetEnum   = "SetEnum"
	OpSetFloat  = "SetFloat"
	OpSetBool   = "SetBool"
	OpBegin     = "BeginAcquisition"
	OpEnd       = "EndAcquisition"
	OpNextFrame = "NextFrame"
	OpRelease   = "Release"
	OpConvert   = "Convert"
	OpSave      = "Save"
)

var (
	errNotInitialised = errors.New("camera not initialised")
	errNotStreaming   = errors.New("acquisition not started")
	errStreaming      = errors.New("acquisition already started")
	errFrameTimeout   = errors.New("timed out waiting for frame")
)

// Default frame geometry of simulated cameras.
const (
	DefaultWidth  = 32
	DefaultHeight = 24

	defaultExposureMax = 30_000_000.0
)

type feature struct {
	mode  device.AccessMode
	value interface{}
	max   float64
}

// FrameSpec describes the next frame a simulated camera hands out.
type FrameSpec struct {
	Incomplete bool
	Status     int
	Err        error // returned by NextFrame instead of a frame
}

// Camera is a simulated camera.
type Camera struct {
	mu       sync.Mutex
	serial   string
	rec      *Recorder
	features map[device.Feature]*feature
	fail     map[string]error

	width, height int
	initialised   bool
	streaming     bool
	acquired      int
	frames        []FrameSpec
	handed        []*Frame
}

// NewCamera creates a color camera with every rig feature read-write.
func NewCamera(serial string, rec *Recorder) *Camera {
	if rec == nil {
		rec = &Recorder{}
	}
	return &Camera{
		serial: serial,
		rec:    rec,
		width:  DefaultWidth,
		height: DefaultHeight,
		fail:   make(map[string]error),
		features: map[device.Feature]*feature{
			device.Gain:             {mode: device.ReadWrite, value: 0.0, max: 47.99},
			device.GainAuto:         {mode: device.ReadWrite, value: "Continuous"},
			device.BalanceRatio:     {mode: device.ReadWrite, value: 1.0, max: 8.0},
			device.BalanceWhiteAuto: {mode: device.ReadWrite, value: "Continuous"},
			device.Gamma:            {mode: device.ReadWrite, value: 0.8, max: 4.0},
			device.PixelFormat:      {mode: device.ReadWrite, value: "Mono8"},
			device.ExposureAuto:     {mode: device.ReadWrite, value: "Continuous"},
			device.ExposureTime:     {mode: device.ReadWrite, value: 10000.0, max: defaultExposureMax},
			device.LineSelector:     {mode: device.ReadWrite, value: "Line0"},
			device.V3_3Enable:       {mode: device.ReadWrite, value: false},
			device.TriggerMode:      {mode: device.ReadWrite, value: device.Off},
			device.TriggerSource:    {mode: device.ReadWrite, value: "Software"},
			device.TriggerOverlap:   {mode: device.ReadWrite, value: device.Off},
			device.AcquisitionMode:  {mode: device.ReadWrite, value: "Continuous"},
		},
	}
}

// SetAccess changes the access mode reported for a feature.
func (c *Camera) SetAccess(f device.Feature, m device.AccessMode) *Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feature(f).mode = m
	return c
}

// SetMax changes the maximum reported for a float feature.
func (c *Camera) SetMax(f device.Feature, max float64) *Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feature(f).max = max
	return c
}

// FailOn makes the given operation (optionally on one feature) return err.
// Use "" as feature for operations that take none.
func (c *Camera) FailOn(op string, f device.Feature, err error) *Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[failKey(op, f)] = err
	return c
}

// QueueFrames sets the frames handed out by the next NextFrame calls.
// Once the queue is empty, complete frames are produced.
func (c *Camera) QueueFrames(specs ...FrameSpec) *Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, specs...)
	return c
}

// Value returns the current value of a feature.
func (c *Camera) Value(f device.Feature) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feature(f).value
}

// Frames returns every frame handed out so far.
func (c *Camera) Frames() []*Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Frame(nil), c.handed...)
}

// Streaming reports whether acquisition is running.
func (c *Camera) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Initialised reports whether Init was called without a later DeInit.
func (c *Camera) Initialised() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialised
}

func failKey(op string, f device.Feature) string {
	return op + "/" + string(f)
}

func (c *Camera) feature(f device.Feature) *feature {
	ft, ok := c.features[f]
	if !ok {
		ft = &feature{mode: device.NotAvailable}
		c.features[f] = ft
	}
	return ft
}

func (c *Camera) injected(op string, f device.Feature) error {
	if err, ok := c.fail[failKey(op, f)]; ok {
		return err
	}
	return nil
}

func (c *Camera) Serial() string { return c.serial }

func (c *Camera) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.record(Call{Serial: c.serial, Op: OpInit})
	if err := c.injected(OpInit, ""); err != nil {
		return err
	}
	c.initialised = true
	return nil
}

func (c *Camera) DeInit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.record(Call{Serial: c.serial, Op: OpDeInit})
	if err := c.injected(OpDeInit, ""); err != nil {
		return err
	}
	c.initialised = false
	return nil
}

func (c *Camera) AccessMode(f device.Feature) device.AccessMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialised {
		return device.NotAvailable
	}
	return c.feature(f).mode
}

func (c *Camera) readable(f device.Feature) (*feature, error) {
	if !c.initialised {
		return nil, errNotInitialised
	}
	ft := c.feature(f)
	if ft.mode != device.ReadOnly && ft.mode != device.ReadWrite {
		return nil, fmt.Errorf("read %s (%s): %w", f, ft.mode, device.ErrAccess)
	}
	return ft, nil
}

func (c *Camera) write(op string, f device.Feature, v interface{}) error {
	c.rec.record(Call{Serial: c.serial, Op: op, Feature: f, Value: v})
	if err := c.injected(op, f); err != nil {
		return err
	}
	if !c.initialised {
		return errNotInitialised
	}
	ft := c.feature(f)
	if ft.mode != device.WriteOnly && ft.mode != device.ReadWrite {
		return fmt.Errorf("write %s (%s): %w", f, ft.mode, device.ErrAccess)
	}
	if fv, ok := v.(float64); ok && ft.max > 0 && fv > ft.max {
		return fmt.Errorf("%s=%v above maximum %v", f, fv, ft.max)
	}
	ft.value = v
	return nil
}

func (c *Camera) Enum(f device.Feature) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ft, err := c.readable(f)
	if err != nil {
		return "", err
	}
	s, ok := ft.value.(string)
	if !ok {
		return "", fmt.Errorf("%s is not an enumeration", f)
	}
	return s, nil
}

func (c *Camera) SetEnum(f device.Feature, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(OpSetEnum, f, value)
}

func (c *Camera) Float(f device.Feature) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ft, err := c.readable(f)
	if err != nil {
		return 0, err
	}
	v, ok := ft.value.(float64)
	if !ok {
		return 0, fmt.Errorf("%s is not a float", f)
	}
	return v, nil
}

func (c *Camera) FloatMax(f device.Feature) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ft, err := c.readable(f)
	if err != nil {
		return 0, err
	}
	return ft.max, nil
}

func (c *Camera) SetFloat(f device.Feature, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(OpSetFloat, f, value)
}

func (c *Camera) Bool(f device.Feature) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ft, err := c.readable(f)
	if err != nil {
		return false, err
	}
	v, ok := ft.value.(bool)
	if !ok {
		return false, fmt.Errorf("%s is not a boolean", f)
	}
	return v, nil
}

func (c *Camera) SetBool(f device.Feature, value bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(OpSetBool, f, value)
}

func (c *Camera) BeginAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.record(Call{Serial: c.serial, Op: OpBegin})
	if err := c.injected(OpBegin, ""); err != nil {
		return err
	}
	if !c.initialised {
		return errNotInitialised
	}
	if c.streaming {
		return errStreaming
	}
	c.streaming = true
	c.acquired = 0
	return nil
}

func (c *Camera) EndAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.record(Call{Serial: c.serial, Op: OpEnd})
	if err := c.injected(OpEnd, ""); err != nil {
		return err
	}
	if !c.streaming {
		return errNotStreaming
	}
	c.streaming = false
	return nil
}

func (c *Camera) NextFrame() (device.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec.record(Call{Serial: c.serial, Op: OpNextFrame})
	if err := c.injected(OpNextFrame, ""); err != nil {
		return nil, err
	}
	if !c.streaming {
		return nil, errNotStreaming
	}
	if mode, _ := c.feature(device.AcquisitionMode).value.(string); mode == device.SingleFrame && c.acquired > 0 {
		return nil, errFrameTimeout
	}

	var spec FrameSpec
	if len(c.frames) > 0 {
		spec, c.frames = c.frames[0], c.frames[1:]
	}
	if spec.Err != nil {
		return nil, spec.Err
	}

	exposure, _ := c.feature(device.ExposureTime).value.(float64)
	fr := &Frame{
		cam:        c,
		incomplete: spec.Incomplete,
		status:     spec.Status,
		width:      c.width,
		height:     c.height,
		pixels:     synthesize(c.width, c.height, exposure),
	}
	c.acquired++
	c.handed = append(c.handed, fr)
	return fr, nil
}
