// Package metrics exposes the outcome of the last capture run in the
// Prometheus text format, written for node_exporter's textfile collector.
package metrics

import (
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Run collects metrics for one capture run.
type Run struct {
	reg *prometheus.Registry

	rounds     *prometheus.GaugeVec
	duration   *prometheus.GaugeVec
	files      prometheus.Gauge
	incomplete prometheus.Gauge
	scene      prometheus.Gauge
	finished   prometheus.Gauge
}

// NewRun creates the run gauges in a fresh registry.
func NewRun() *Run {
	r := &Run{
		reg: prometheus.NewRegistry(),
		rounds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bracketgo_last_run_round_ok",
			Help: "1 if the bracket's capture round succeeded in the last run, 0 otherwise.",
		}, []string{"bracket"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bracketgo_last_run_round_duration_seconds",
			Help: "Wall time of each capture round in the last run.",
		}, []string{"bracket"}),
		files: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bracketgo_last_run_files_written",
			Help: "Image files written by the last run.",
		}),
		incomplete: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bracketgo_last_run_incomplete_rounds",
			Help: "Rounds skipped in the last run because a frame was incomplete.",
		}),
		scene: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bracketgo_scene",
			Help: "Scene number captured by the last run.",
		}),
		finished: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bracketgo_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
	r.reg.MustRegister(r.rounds, r.duration, r.files, r.incomplete, r.scene, r.finished)
	return r
}

// Registry exposes the underlying registry (tests, alternative exporters).
func (r *Run) Registry() *prometheus.Registry {
	return r.reg
}

// ObserveRound records one round's outcome.
func (r *Run) ObserveRound(bracket string, ok, incomplete bool, files int, took time.Duration) {
	v := 0.0
	if ok {
		v = 1
	}
	r.rounds.WithLabelValues(bracket).Set(v)
	r.duration.WithLabelValues(bracket).Set(took.Seconds())
	r.files.Add(float64(files))
	if incomplete {
		r.incomplete.Inc()
	}
}

// Finish records the scene and completion time.
func (r *Run) Finish(scene int, at time.Time) {
	r.scene.Set(float64(scene))
	r.finished.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes every metric to path.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return pkgerrors.Wrap(err, "write metrics textfile")
	}
	return nil
}
