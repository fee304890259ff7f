package params

import (
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/cjeanneret/BracketGo/internal/debug"
	"github.com/cjeanneret/BracketGo/internal/hw/device"
)

// ErrPixelFormatUnavailable is returned when the camera won't accept a pixel format change.
var ErrPixelFormatUnavailable = errors.New("pixel format not available")

// Settings is the fixed image parameter set applied to every camera.
type Settings struct {
	Gain         float64 // dB
	WhiteBalance float64 // red/green balance ratio
	Gamma        float64
}

// Configurator applies Settings and the pixel format to a camera.
// Writes are skipped when the camera already reports the target value,
// so applying the same settings twice leaves the camera untouched.
type Configurator struct {
	Format device.Format
}

// NewConfigurator returns a configurator for 8-bit RGGB bayer output.
func NewConfigurator() *Configurator {
	return &Configurator{Format: device.BayerRG8}
}

// Apply configures one camera. Cosmetic parameters that aren't writable
// (e.g. white balance on a monochrome sensor) are skipped with a warning.
// The pixel format is attempted even when a cosmetic write failed; every
// failure is joined into the returned error.
func (c *Configurator) Apply(cam device.Camera, s Settings) error {
	return errors.Join(applyCosmetics(cam, s), c.applyFormat(cam))
}

// applyCosmetics sets white balance, gain and gamma, stopping at the first SDK error.
func applyCosmetics(cam device.Camera, s Settings) error {
	log := debug.With(debug.Fields{"camera": cam.Serial()})

	debug.Verbose("Configuring white balance")
	if cam.AccessMode(device.BalanceWhiteAuto).Writable() {
		if err := ensureEnum(cam, device.BalanceWhiteAuto, device.Off); err != nil {
			return err
		}
		if err := ensureFloat(cam, device.BalanceRatio, s.WhiteBalance); err != nil {
			return err
		}
		log.WithField("ratio", s.WhiteBalance).Info("white balance set")
	} else {
		log.Warn("auto white balance not writable (monochrome camera?), skipping white balance")
	}

	debug.Verbose("Configuring gain")
	if cam.AccessMode(device.GainAuto).Writable() {
		if err := ensureEnum(cam, device.GainAuto, device.Off); err != nil {
			return err
		}
		if err := ensureFloat(cam, device.Gain, s.Gain); err != nil {
			return err
		}
		log.WithField("gain", s.Gain).Info("gain set")
	} else {
		log.Warn("auto gain not writable, skipping gain")
	}

	debug.Verbose("Configuring gamma")
	if cam.AccessMode(device.Gamma).Writable() {
		if err := ensureFloat(cam, device.Gamma, s.Gamma); err != nil {
			return err
		}
		log.WithField("gamma", s.Gamma).Info("gamma set")
	} else {
		log.Warn("gamma not writable, skipping gamma")
	}
	return nil
}

func (c *Configurator) applyFormat(cam device.Camera) error {
	if !cam.AccessMode(device.PixelFormat).Writable() {
		return pkgerrors.Wrapf(ErrPixelFormatUnavailable, "camera %s: %s", cam.Serial(), c.Format)
	}
	if err := ensureEnum(cam, device.PixelFormat, string(c.Format)); err != nil {
		return err
	}
	debug.With(debug.Fields{"camera": cam.Serial(), "format": c.Format}).Info("pixel format set")
	return nil
}

// ApplyAll configures both cameras of the pair. Each camera is attempted
// even if the other fails; the joined error is returned for logging.
func (c *Configurator) ApplyAll(pair device.Pair, s Settings) error {
	return pair.Each(func(role device.Role, cam device.Camera) error {
		debug.Section("Configuring " + role.String() + " camera " + cam.Serial())
		return c.Apply(cam, s)
	})
}

func ensureEnum(cam device.Camera, f device.Feature, v string) error {
	if cur, err := cam.Enum(f); err == nil && cur == v {
		debug.Trace("%s already %s on %s", f, v, cam.Serial())
		return nil
	}
	if err := cam.SetEnum(f, v); err != nil {
		return pkgerrors.Wrapf(err, "set %s=%s on %s", f, v, cam.Serial())
	}
	return nil
}

func ensureFloat(cam device.Camera, f device.Feature, v float64) error {
	if cur, err := cam.Float(f); err == nil && cur == v {
		debug.Trace("%s already %g on %s", f, v, cam.Serial())
		return nil
	}
	if err := cam.SetFloat(f, v); err != nil {
		return pkgerrors.Wrapf(err, "set %s=%g on %s", f, v, cam.Serial())
	}
	return nil
}
