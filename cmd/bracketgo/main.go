package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/BracketGo/internal/catalog"
	"github.com/cjeanneret/BracketGo/internal/config"
	"github.com/cjeanneret/BracketGo/internal/debug"
	"github.com/cjeanneret/BracketGo/internal/hw/device"
	"github.com/cjeanneret/BracketGo/internal/hw/device/sim"
	"github.com/cjeanneret/BracketGo/internal/hw/signal"
	"github.com/cjeanneret/BracketGo/internal/logic/capture"
	"github.com/cjeanneret/BracketGo/internal/logic/sequence"
	"github.com/cjeanneret/BracketGo/internal/metrics"
	"github.com/cjeanneret/BracketGo/internal/store"
)

var configPath = filepath.Join("configs", "default.yaml")

func main() {
	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	o := overrides{DebugLevel: -1}
	cmd := &cobra.Command{
		Use:   "bracketgo",
		Short: "bracketgo captures a synchronized short/long exposure pair from a two-camera rig",
		Long: `bracketgo configures two machine-vision cameras as a hardware-triggered pair,
captures one scene at the short and the long exposure, and writes the raw and
RGB conversion of every frame below each camera's output root.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateCLIOverrides(o); err != nil {
				return err
			}
			base, err := loadConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			cfg := applyOverridesToCopy(base, o)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", configPath, "path to config file")
	f.IntVar(&o.Scene, "scene", 0, "override the minimum scene number")
	f.Float64Var(&o.ShortUs, "short-exposure-us", 0, "override the short exposure in microseconds")
	f.Float64Var(&o.LongUs, "long-exposure-us", 0, "override the long exposure in microseconds")
	f.IntVar(&o.DebugLevel, "debug", -1, "override the debug level (0-4)")
	return cmd
}

// loadConfig reads path. Without an explicit --config, a missing default
// file means "use the built-in rig defaults".
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("load config failed: %w", err)
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", configPath)
	debug.PrintStruct("Cameras", cfg.Cameras)
	debug.PrintStruct("Params", cfg.Params)

	// A malformed counter must stop the run before any camera is touched.
	counter := store.NewCounter(cfg.Files.Counter)
	if _, err := counter.Current(cfg.Params.Scene); err != nil {
		return err
	}

	debug.Step(1, "Opening camera system")
	sys, err := newSystemFromConfig(cfg)
	if err != nil {
		return err
	}
	pair, closePair, err := device.OpenPair(sys, cfg.Cameras.SourceSerial, cfg.Cameras.FollowerSerial)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePair(); err != nil {
			debug.Error(err)
		}
	}()

	debug.Step(2, "Initializing busy line")
	busy, err := signal.New(cfg.Defaults.MockGPIO, cfg.Defaults.BusyPin)
	if err != nil {
		return err
	}
	defer func() {
		if err := busy.Close(); err != nil {
			debug.Error(err)
		}
	}()

	layout := capture.Layout{SourceRoot: cfg.Cameras.SourceRoot, FollowerRoot: cfg.Cameras.FollowerRoot}
	checkLayout(layout)

	p := sequence.Params{
		Settings:            cfg.Settings(),
		Presets:             cfg.Presets(),
		Lines:               cfg.Lines(),
		Layout:              layout,
		Busy:                busy,
		Counter:             counter,
		MinScene:            cfg.Params.Scene,
		AbortOnRoundFailure: cfg.AbortOnRoundFailure(),
	}

	if cfg.Files.Catalog != "" {
		cat, err := catalog.Open(cfg.Files.Catalog)
		if err != nil {
			return err
		}
		defer cat.Close()
		p.Catalog = cat
	}

	var runMetrics *metrics.Run
	if cfg.Files.MetricsTextfile != "" {
		runMetrics = metrics.NewRun()
		p.Metrics = runMetrics
	}

	runner := sequence.NewRunner(pair, p)
	plan, err := runner.Plan()
	if err != nil {
		return err
	}

	if cfg.Files.Metadata != "" {
		if err := store.WriteMetadata(cfg.Files.Metadata, metadataFor(cfg, plan)); err != nil {
			debug.Error(err)
		}
	}

	rep, runErr := runner.Run(ctx, plan)

	if runMetrics != nil {
		if err := runMetrics.WriteTextfile(cfg.Files.MetricsTextfile); err != nil {
			debug.Error(err)
		}
	}

	printSummary(out, rep)
	return runErr
}

// newSystemFromConfig selects the camera SDK backend.
func newSystemFromConfig(cfg *config.Config) (device.System, error) {
	switch cfg.Cameras.Backend {
	case "sim":
		debug.Info("Using SIMULATED cameras (development mode)")
		return sim.NewRigSystem(cfg.Cameras.SourceSerial, cfg.Cameras.FollowerSerial), nil
	default:
		return nil, fmt.Errorf("unsupported camera backend: %s", cfg.Cameras.Backend)
	}
}

// checkLayout warns about output directories that don't exist; the capture
// pipeline doesn't create them and saving into them would fail.
func checkLayout(l capture.Layout) {
	for _, dir := range l.Dirs() {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			debug.Warn("output directory %s is missing, captures into it will fail", dir)
		}
	}
}

func metadataFor(cfg *config.Config, plan sequence.Plan) store.Metadata {
	return store.Metadata{
		RunID:        plan.RunID,
		Stem:         plan.Stem,
		Scene:        plan.Scene,
		CapturedAt:   plan.At,
		Gain:         cfg.Params.Gain,
		WhiteBalance: cfg.Params.WhiteBalance,
		Gamma:        cfg.Params.Gamma,
		ShortUs:      cfg.Params.ShortExposureUs,
		LongUs:       cfg.Params.LongExposureUs,
		NumImages:    cfg.Params.NumImages,
		SourceRoot:   cfg.Cameras.SourceRoot,
		FollowerRoot: cfg.Cameras.FollowerRoot,
		MinScene:     cfg.Params.Scene,
	}
}
