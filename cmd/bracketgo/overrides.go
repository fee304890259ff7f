package main

import (
	"fmt"
	"math"

	"github.com/cjeanneret/BracketGo/internal/config"
)

// maxExposureUs is far beyond any camera maximum; the cameras clamp anyway.
const maxExposureUs = 60e6

// overrides are per-run values given on the command line. Zero values
// (and -1 for the debug level) mean "use the config file".
type overrides struct {
	Scene      int
	ShortUs    float64
	LongUs     float64
	DebugLevel int
}

// validateCLIOverrides checks that set overrides are within valid ranges.
func validateCLIOverrides(o overrides) error {
	if o.Scene < 0 {
		return fmt.Errorf("scene must be >= 0, got %d", o.Scene)
	}
	for _, e := range []struct {
		name string
		v    float64
	}{{"short-exposure-us", o.ShortUs}, {"long-exposure-us", o.LongUs}} {
		if e.v == 0 {
			continue
		}
		if math.IsNaN(e.v) || math.IsInf(e.v, 0) || e.v < 1 || e.v > maxExposureUs {
			return fmt.Errorf("%s must be between 1 and %g, got %g", e.name, maxExposureUs, e.v)
		}
	}
	if o.DebugLevel < -1 || o.DebugLevel > 4 {
		return fmt.Errorf("debug must be between 0 and 4, got %d", o.DebugLevel)
	}
	return nil
}

// applyOverridesToCopy returns a new config with overrides applied.
func applyOverridesToCopy(baseCfg *config.Config, o overrides) *config.Config {
	cfg := *baseCfg
	if o.Scene > 0 {
		cfg.Params.Scene = o.Scene
	}
	if o.ShortUs > 0 {
		cfg.Params.ShortExposureUs = o.ShortUs
	}
	if o.LongUs > 0 {
		cfg.Params.LongExposureUs = o.LongUs
	}
	if o.DebugLevel >= 0 {
		cfg.Defaults.DebugLevel = o.DebugLevel
	}
	return &cfg
}
