package device

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/cjeanneret/BracketGo/internal/debug"
)

// Role is the part a camera plays in the synchronized pair.
type Role int

const (
	RoleSource Role = iota
	RoleFollower
)

func (r Role) String() string {
	if r == RoleFollower {
		return "follower"
	}
	return "source"
}

// Pair is the trigger source and the hardware-triggered follower.
type Pair struct {
	Source   Camera
	Follower Camera
}

// Each calls fn for the source then the follower.
func (p Pair) Each(fn func(Role, Camera) error) error {
	var errs []error
	for _, rc := range []struct {
		role Role
		cam  Camera
	}{{RoleSource, p.Source}, {RoleFollower, p.Follower}} {
		if err := fn(rc.role, rc.cam); err != nil {
			errs = append(errs, fmt.Errorf("%s camera %s: %w", rc.role, rc.cam.Serial(), err))
		}
	}
	return errors.Join(errs...)
}

// OpenPair looks both cameras up by serial and initialises them.
// The returned close function deinitialises both cameras and closes the system.
func OpenPair(sys System, sourceSerial, followerSerial string) (Pair, func() error, error) {
	var opened []Camera
	closeAll := func() error {
		var errs []error
		for i := len(opened) - 1; i >= 0; i-- {
			debug.Trace("DeInit camera %s", opened[i].Serial())
			if err := opened[i].DeInit(); err != nil {
				errs = append(errs, pkgerrors.Wrapf(err, "deinit camera %s", opened[i].Serial()))
			}
		}
		if err := sys.Close(); err != nil {
			errs = append(errs, pkgerrors.Wrap(err, "close system"))
		}
		return errors.Join(errs...)
	}

	open := func(serial string) (Camera, error) {
		cam, err := sys.CameraBySerial(serial)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "lookup camera %s", serial)
		}
		debug.Trace("Init camera %s", serial)
		if err := cam.Init(); err != nil {
			return nil, pkgerrors.Wrapf(err, "init camera %s", serial)
		}
		opened = append(opened, cam)
		return cam, nil
	}

	src, err := open(sourceSerial)
	if err != nil {
		return Pair{}, nil, errors.Join(err, closeAll())
	}
	fol, err := open(followerSerial)
	if err != nil {
		return Pair{}, nil, errors.Join(err, closeAll())
	}

	debug.With(debug.Fields{"source": sourceSerial, "follower": followerSerial}).Info("cameras initialised")
	return Pair{Source: src, Follower: fol}, closeAll, nil
}
