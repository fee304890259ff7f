package capture

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/cjeanneret/BracketGo/internal/debug"
	"github.com/cjeanneret/BracketGo/internal/hw/device"
	"github.com/cjeanneret/BracketGo/internal/hw/signal"
	"github.com/cjeanneret/BracketGo/internal/logic/exposure"
)

// ErrIncompleteFrame is returned when either camera delivered an incomplete frame.
// Nothing is written for such a round.
var ErrIncompleteFrame = errors.New("incomplete frame")

// Result describes one capture round.
type Result struct {
	Bracket exposure.Bracket
	Stem    string
	Files   []string // written files, in write order
}

// Pipeline runs capture rounds on a synchronized pair.
type Pipeline struct {
	layout Layout
	busy   signal.Line
}

// NewPipeline creates a pipeline writing below layout. busy may be nil.
func NewPipeline(layout Layout, busy signal.Line) *Pipeline {
	if busy == nil {
		busy = signal.Nop{}
	}
	return &Pipeline{layout: layout, busy: busy}
}

// Layout returns the output layout.
func (p *Pipeline) Layout() Layout {
	return p.layout
}

type shot struct {
	role  device.Role
	cam   device.Camera
	frame device.Frame
}

// AcquireRound captures one synchronized frame pair and writes the raw and
// RGB conversion of each frame.
//
// The follower is armed before the source starts, since the source's exposure
// is what triggers it. Every retrieved frame is released and every started
// camera has its acquisition ended on all exit paths; errors from that cleanup
// are joined into the returned error.
func (p *Pipeline) AcquireRound(pair device.Pair, b exposure.Bracket, stem string) (res Result, err error) {
	res = Result{Bracket: b, Stem: stem}
	debug.Section("Image acquisition (" + b.Label() + ")")

	releaseBusy, err := signal.Hold(p.busy)
	if err != nil {
		return res, pkgerrors.Wrap(err, "assert busy line")
	}
	defer func() {
		if rerr := releaseBusy(); rerr != nil {
			err = errors.Join(err, pkgerrors.Wrap(rerr, "release busy line"))
		}
	}()

	end, err := begin(pair)
	defer func() {
		err = errors.Join(err, end())
	}()
	if err != nil {
		return res, err
	}

	debug.Live("Acquiring images...")
	res.Files, err = p.grab(pair, b, stem)
	return res, err
}

// begin starts acquisition on the follower, then the source. The returned
// func ends acquisition on every camera that was started, source first.
func begin(pair device.Pair) (func() error, error) {
	var started []device.Camera
	end := func() error {
		var errs []error
		for i := len(started) - 1; i >= 0; i-- {
			cam := started[i]
			debug.Trace("EndAcquisition %s", cam.Serial())
			if err := cam.EndAcquisition(); err != nil {
				errs = append(errs, pkgerrors.Wrapf(err, "end acquisition on %s", cam.Serial()))
			}
		}
		return errors.Join(errs...)
	}

	for _, cam := range []device.Camera{pair.Follower, pair.Source} {
		debug.Trace("BeginAcquisition %s", cam.Serial())
		if err := cam.BeginAcquisition(); err != nil {
			return end, pkgerrors.Wrapf(err, "begin acquisition on %s", cam.Serial())
		}
		started = append(started, cam)
	}
	return end, nil
}

func (p *Pipeline) grab(pair device.Pair, b exposure.Bracket, stem string) (files []string, err error) {
	shots := []*shot{
		{role: device.RoleSource, cam: pair.Source},
		{role: device.RoleFollower, cam: pair.Follower},
	}

	for _, s := range shots {
		s := s
		fr, ferr := s.cam.NextFrame()
		if ferr != nil {
			return nil, pkgerrors.Wrapf(ferr, "next frame from %s", s.cam.Serial())
		}
		s.frame = fr
		// Frames belong to the camera's buffer pool; leaking one starves acquisition.
		defer func() {
			if rerr := fr.Release(); rerr != nil {
				err = errors.Join(err, pkgerrors.Wrapf(rerr, "release frame from %s", s.cam.Serial()))
			}
		}()
	}

	var incomplete []string
	for _, s := range shots {
		if s.frame.Incomplete() {
			debug.With(debug.Fields{
				"camera": s.cam.Serial(),
				"role":   s.role,
				"status": s.frame.Status(),
			}).Warn("image incomplete")
			incomplete = append(incomplete, fmt.Sprintf("%s status %d", s.cam.Serial(), s.frame.Status()))
		}
	}
	if len(incomplete) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteFrame, strings.Join(incomplete, ", "))
	}

	type output struct {
		img  device.Image
		path string
		cam  string
	}
	var outs []output
	for _, s := range shots {
		for _, r := range Representations {
			img, cerr := s.frame.Convert(r.Format())
			if cerr != nil {
				return nil, pkgerrors.Wrapf(cerr, "convert frame from %s to %s", s.cam.Serial(), r.Format())
			}
			outs = append(outs, output{img: img, path: p.layout.Path(s.role, b, r, stem), cam: s.cam.Serial()})
		}
	}

	for _, o := range outs {
		if serr := o.img.Save(o.path); serr != nil {
			return files, pkgerrors.Wrapf(serr, "save %s", o.path)
		}
		files = append(files, o.path)
		debug.With(debug.Fields{"camera": o.cam}).Infof("image saved at %s", o.path)
	}
	return files, nil
}
