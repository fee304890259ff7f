package exposure

import (
	"errors"
	"math"

	pkgerrors "github.com/pkg/errors"

	"github.com/cjeanneret/BracketGo/internal/debug"
	"github.com/cjeanneret/BracketGo/internal/hw/device"
)

var (
	// ErrAutoExposureLocked is returned when automatic exposure can't be turned off.
	ErrAutoExposureLocked = errors.New("automatic exposure not writable")

	// ErrExposureLocked is returned when the exposure time can't be set.
	ErrExposureLocked = errors.New("exposure time not writable")
)

// Bracket is one exposure setting of the bracket.
type Bracket int

const (
	Short Bracket = iota
	Long
)

// Brackets lists every bracket in capture order.
var Brackets = []Bracket{Short, Long}

func (b Bracket) String() string {
	if b == Long {
		return "long"
	}
	return "short"
}

// Label is the output subdirectory for captures taken with this bracket.
func (b Bracket) Label() string {
	return b.String() + "_exposure"
}

// Presets holds the nominal exposure of each bracket, in microseconds.
type Presets struct {
	ShortUs float64
	LongUs  float64
}

// Microseconds returns the nominal exposure for b.
func (p Presets) Microseconds(b Bracket) float64 {
	if b == Long {
		return p.LongUs
	}
	return p.ShortUs
}

// SetExposure turns automatic exposure off and applies requestedUs, clamped
// to the camera's maximum. It returns the value actually applied.
func SetExposure(cam device.Camera, requestedUs float64) (float64, error) {
	if !cam.AccessMode(device.ExposureAuto).Writable() {
		return 0, pkgerrors.Wrapf(ErrAutoExposureLocked, "camera %s", cam.Serial())
	}
	if err := cam.SetEnum(device.ExposureAuto, device.Off); err != nil {
		return 0, pkgerrors.Wrapf(err, "disable auto exposure on %s", cam.Serial())
	}
	debug.Verbose("Automatic exposure disabled on %s", cam.Serial())

	if !cam.AccessMode(device.ExposureTime).Writable() {
		return 0, pkgerrors.Wrapf(ErrExposureLocked, "camera %s", cam.Serial())
	}
	maxUs, err := cam.FloatMax(device.ExposureTime)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "read exposure maximum on %s", cam.Serial())
	}
	applied := math.Min(maxUs, requestedUs)
	if applied < requestedUs {
		debug.Verbose("Exposure %gus clamped to camera maximum %gus on %s", requestedUs, maxUs, cam.Serial())
	}
	if err := cam.SetFloat(device.ExposureTime, applied); err != nil {
		return 0, pkgerrors.Wrapf(err, "set exposure on %s", cam.Serial())
	}
	return applied, nil
}

// Controller switches both cameras of a pair between bracket presets.
type Controller struct {
	presets Presets
}

// NewController returns a controller applying the given bracket presets.
func NewController(p Presets) *Controller {
	return &Controller{presets: p}
}

// Apply sets the bracket's exposure on each camera independently.
// A failure on one camera doesn't stop the other.
func (c *Controller) Apply(pair device.Pair, b Bracket) error {
	requested := c.presets.Microseconds(b)
	return pair.Each(func(role device.Role, cam device.Camera) error {
		applied, err := SetExposure(cam, requested)
		if err != nil {
			return err
		}
		debug.With(debug.Fields{
			"camera":  cam.Serial(),
			"role":    role,
			"bracket": b,
		}).Infof("shutter time set to %g us", applied)
		return nil
	})
}
