package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/BracketGo/internal/catalog"
	"github.com/cjeanneret/BracketGo/internal/debug"
	"github.com/cjeanneret/BracketGo/internal/hw/device"
	"github.com/cjeanneret/BracketGo/internal/hw/signal"
	"github.com/cjeanneret/BracketGo/internal/logic/capture"
	"github.com/cjeanneret/BracketGo/internal/logic/exposure"
	"github.com/cjeanneret/BracketGo/internal/logic/params"
	"github.com/cjeanneret/BracketGo/internal/logic/trigger"
	"github.com/cjeanneret/BracketGo/internal/metrics"
	"github.com/cjeanneret/BracketGo/internal/store"
)

// StemLayout is the timestamp part of every file stem: 12-hour clock with AM/PM.
const StemLayout = "2006_01_02-03:04:05_PM"

// Clock provides the capture timestamp.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RoundRecorder persists round outcomes (see catalog.Catalog).
type RoundRecorder interface {
	Record(ctx context.Context, r catalog.Round) error
}

// Params wires a Runner.
type Params struct {
	Settings params.Settings
	Presets  exposure.Presets
	Lines    trigger.Lines
	Layout   capture.Layout
	Busy     signal.Line // optional

	Counter  *store.Counter
	MinScene int

	// AbortOnRoundFailure skips the remaining brackets once a round fails.
	AbortOnRoundFailure bool

	Clock   Clock         // optional, defaults to SystemClock
	Catalog RoundRecorder // optional
	Metrics *metrics.Run  // optional
}

// Runner captures one scene: configure, wire the trigger, then one round per bracket.
type Runner struct {
	pair         device.Pair
	p            Params
	configurator *params.Configurator
	coordinator  *trigger.Coordinator
	exposures    *exposure.Controller
	pipeline     *capture.Pipeline
}

// NewRunner builds the per-phase helpers for pair. A nil Clock means SystemClock.
func NewRunner(pair device.Pair, p Params) *Runner {
	if p.Clock == nil {
		p.Clock = SystemClock{}
	}
	return &Runner{
		pair:         pair,
		p:            p,
		configurator: params.NewConfigurator(),
		coordinator:  trigger.NewCoordinator(p.Lines),
		exposures:    exposure.NewController(p.Presets),
		pipeline:     capture.NewPipeline(p.Layout, p.Busy),
	}
}

// Plan identifies one scene capture. Both brackets share its stem.
type Plan struct {
	RunID string
	Scene int
	Stem  string
	At    time.Time
}

// FormatStem builds the file stem for a scene captured at t.
func FormatStem(t time.Time, scene int) string {
	return fmt.Sprintf("%s_scene_%d", t.Format(StemLayout), scene)
}

// Plan reads the scene counter and derives the stem from the clock.
func (r *Runner) Plan() (Plan, error) {
	scene, err := r.p.Counter.Current(r.p.MinScene)
	if err != nil {
		return Plan{}, err
	}
	at := r.p.Clock.Now()
	return Plan{
		RunID: uuid.NewString(),
		Scene: scene,
		Stem:  FormatStem(at, scene),
		At:    at,
	}, nil
}

// RoundReport is the outcome of one bracket.
type RoundReport struct {
	capture.Result
	ExposureErr error // exposure could not be applied; the round still ran
	Err         error
	Skipped     bool
	Took        time.Duration
}

// OK reports whether the round wrote its files.
func (rr RoundReport) OK() bool {
	return !rr.Skipped && rr.Err == nil
}

// Report is the outcome of a scene capture.
type Report struct {
	Plan
	ConfigErr error // best-effort parameter configuration failures
	Rounds    []RoundReport
	NextScene int // persisted counter value; 0 if not persisted
}

// Failed reports whether any round failed or was skipped.
func (rep *Report) Failed() bool {
	for _, rr := range rep.Rounds {
		if !rr.OK() {
			return true
		}
	}
	return false
}

// RunScene plans and captures one scene.
func (r *Runner) RunScene(ctx context.Context) (*Report, error) {
	plan, err := r.Plan()
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, plan)
}

// Run captures the planned scene. Parameter configuration and exposure
// failures are logged and the run continues; a trigger wiring failure stops
// the run before any capture. Round failures are reported, not returned: the
// counter still advances so the next run doesn't reuse the stem.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Report, error) {
	rep := &Report{Plan: plan}
	debug.Summary(fmt.Sprintf("Scene %d (%s)", plan.Scene, plan.Stem))
	debug.Value("Run ID", plan.RunID)

	debug.Step(1, "Configuring camera parameters")
	if err := r.configurator.ApplyAll(r.pair, r.p.Settings); err != nil {
		debug.Error(err)
		rep.ConfigErr = err
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	debug.Step(2, "Configuring trigger wiring")
	if err := r.coordinator.Setup(r.pair); err != nil {
		return rep, err
	}

	for i, b := range exposure.Brackets {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		debug.Step(3+i, "Capturing "+b.Label())

		if r.p.AbortOnRoundFailure && rep.Failed() {
			debug.Warn("skipping %s round after a failed round", b)
			rep.Rounds = append(rep.Rounds, RoundReport{Result: capture.Result{Bracket: b, Stem: plan.Stem}, Skipped: true})
			continue
		}
		rep.Rounds = append(rep.Rounds, r.round(ctx, plan, b))
	}

	next := plan.Scene + 1
	if err := r.p.Counter.Store(next); err != nil {
		return rep, err
	}
	rep.NextScene = next
	debug.Info("Scene counter advanced to %d", next)

	if r.p.Metrics != nil {
		r.p.Metrics.Finish(plan.Scene, r.p.Clock.Now())
	}
	return rep, nil
}

func (r *Runner) round(ctx context.Context, plan Plan, b exposure.Bracket) RoundReport {
	var rr RoundReport

	if err := r.exposures.Apply(r.pair, b); err != nil {
		debug.Error(err)
		rr.ExposureErr = err
	}

	start := r.p.Clock.Now()
	rr.Result, rr.Err = r.pipeline.AcquireRound(r.pair, b, plan.Stem)
	rr.Took = r.p.Clock.Now().Sub(start)

	log := debug.With(debug.Fields{"bracket": b, "files": len(rr.Files)})
	if rr.Err != nil {
		log.WithError(rr.Err).Error("capture round failed")
	} else {
		log.Info("capture round complete")
	}

	if r.p.Metrics != nil {
		r.p.Metrics.ObserveRound(b.String(), rr.OK(), errors.Is(rr.Err, capture.ErrIncompleteFrame), len(rr.Files), rr.Took)
	}
	if r.p.Catalog != nil {
		row := catalog.Round{
			RunID:     plan.RunID,
			Stem:      plan.Stem,
			Scene:     plan.Scene,
			Bracket:   b.String(),
			OK:        rr.OK(),
			Files:     rr.Files,
			CreatedAt: start,
		}
		if rr.Err != nil {
			row.Err = rr.Err.Error()
		}
		if err := r.p.Catalog.Record(ctx, row); err != nil {
			debug.Warn("catalog: %v", err)
		}
	}
	return rr
}
