package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/BracketGo/internal/catalog"
	"github.com/cjeanneret/BracketGo/internal/config"
	"github.com/cjeanneret/BracketGo/internal/hw/device"
	"github.com/cjeanneret/BracketGo/internal/logic/capture"
	"github.com/cjeanneret/BracketGo/internal/logic/exposure"
	"github.com/cjeanneret/BracketGo/internal/logic/sequence"
	"github.com/cjeanneret/BracketGo/internal/store"
)

// ---------- validateCLIOverrides ----------

func TestValidateCLIOverrides_Unset(t *testing.T) {
	if err := validateCLIOverrides(overrides{DebugLevel: -1}); err != nil {
		t.Errorf("unset overrides should be valid, got: %v", err)
	}
}

func TestValidateCLIOverrides_Valid(t *testing.T) {
	cases := []struct {
		name string
		o    overrides
	}{
		{"scene", overrides{Scene: 42, DebugLevel: -1}},
		{"min_exposure", overrides{ShortUs: 1, DebugLevel: -1}},
		{"max_exposure", overrides{LongUs: maxExposureUs, DebugLevel: -1}},
		{"debug_off", overrides{DebugLevel: 0}},
		{"debug_trace", overrides{DebugLevel: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateCLIOverrides(tc.o); err != nil {
				t.Errorf("expected valid, got: %v", err)
			}
		})
	}
}

func TestValidateCLIOverrides_OutOfRange(t *testing.T) {
	cases := []struct {
		name string
		o    overrides
	}{
		{"negative_scene", overrides{Scene: -1, DebugLevel: -1}},
		{"short_negative", overrides{ShortUs: -5, DebugLevel: -1}},
		{"short_fraction", overrides{ShortUs: 0.5, DebugLevel: -1}},
		{"long_too_large", overrides{LongUs: maxExposureUs + 1, DebugLevel: -1}},
		{"long_nan", overrides{LongUs: math.NaN(), DebugLevel: -1}},
		{"short_inf", overrides{ShortUs: math.Inf(1), DebugLevel: -1}},
		{"debug_too_high", overrides{DebugLevel: 5}},
		{"debug_too_low", overrides{DebugLevel: -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateCLIOverrides(tc.o); err == nil {
				t.Error("expected error for out-of-range value, got nil")
			}
		})
	}
}

// ---------- applyOverridesToCopy ----------

func TestApplyOverridesToCopy(t *testing.T) {
	base := config.Default()
	cfg := applyOverridesToCopy(base, overrides{Scene: 7, LongUs: 2e6, DebugLevel: 3})

	if cfg == base {
		t.Fatal("applyOverridesToCopy should return a new pointer")
	}
	if cfg.Params.Scene != 7 || cfg.Params.LongExposureUs != 2e6 || cfg.Defaults.DebugLevel != 3 {
		t.Errorf("overrides not applied: %+v %+v", cfg.Params, cfg.Defaults)
	}
	if cfg.Params.ShortExposureUs != base.Params.ShortExposureUs {
		t.Errorf("short exposure changed: %v", cfg.Params.ShortExposureUs)
	}
	if base.Params.Scene != 1 || base.Defaults.DebugLevel != 1 {
		t.Errorf("original mutated: %+v %+v", base.Params, base.Defaults)
	}
}

func TestApplyOverridesToCopy_Unset(t *testing.T) {
	base := config.Default()
	cfg := applyOverridesToCopy(base, overrides{DebugLevel: -1})
	if *cfg != *base {
		t.Errorf("unset overrides changed the config: %+v", cfg)
	}
}

// ---------- loadConfig ----------

func TestLoadConfig_MissingDefaultFallsBack(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "default.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_MissingExplicitFails(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "rig.yaml"), true)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidIsNeverIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	require.NoError(t, os.WriteFile(path, []byte("params:\n  white_balance: -1\n"), 0o644))

	_, err := loadConfig(path, false)
	assert.Error(t, err)
}

// ---------- run ----------

func noColor(t *testing.T) {
	t.Helper()
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })
}

// testConfig returns a simulated rig writing everything below a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Cameras.SourceRoot = filepath.Join(dir, "cam1")
	cfg.Cameras.FollowerRoot = filepath.Join(dir, "cam2")
	cfg.Files.Counter = filepath.Join(dir, "scene_value.txt")
	cfg.Files.Metadata = filepath.Join(dir, "metadata.txt")
	cfg.Files.Catalog = filepath.Join(dir, "catalog.db")
	cfg.Files.MetricsTextfile = filepath.Join(dir, "bracketgo.prom")
	cfg.Defaults.DebugLevel = 0

	layout := capture.Layout{SourceRoot: cfg.Cameras.SourceRoot, FollowerRoot: cfg.Cameras.FollowerRoot}
	for _, d := range layout.Dirs() {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	return cfg
}

func TestRun_SimulatedRig(t *testing.T) {
	noColor(t)
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), cfg, &out))

	counter, err := os.ReadFile(cfg.Files.Counter)
	require.NoError(t, err)
	assert.Equal(t, "2", string(counter))

	data, err := os.ReadFile(cfg.Files.Metadata)
	require.NoError(t, err)
	var meta store.Metadata
	require.NoError(t, yaml.Unmarshal(data, &meta))
	assert.Equal(t, 1, meta.Scene)
	assert.Equal(t, cfg.Params.WhiteBalance, meta.WhiteBalance)
	assert.NotEmpty(t, meta.RunID)

	layout := capture.Layout{SourceRoot: cfg.Cameras.SourceRoot, FollowerRoot: cfg.Cameras.FollowerRoot}
	for _, b := range exposure.Brackets {
		for _, r := range capture.Representations {
			assert.FileExists(t, layout.Path(device.RoleSource, b, r, meta.Stem))
			assert.FileExists(t, layout.Path(device.RoleFollower, b, r, meta.Stem))
		}
	}

	cat, err := catalog.Open(cfg.Files.Catalog)
	require.NoError(t, err)
	defer cat.Close()
	rounds, err := cat.Rounds(context.Background(), meta.RunID)
	require.NoError(t, err)
	assert.Len(t, rounds, 2)

	prom, err := os.ReadFile(cfg.Files.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "bracketgo_last_run_files_written 8")

	assert.Contains(t, out.String(), "Scene 1")
	assert.Contains(t, out.String(), "Next scene: 2")
}

func TestRun_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cameras.Backend = "spinnaker"

	err := run(context.Background(), cfg, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported camera backend")
}

func TestRun_MalformedCounter(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Files.Counter, []byte("abc"), 0o644))

	err := run(context.Background(), cfg, &bytes.Buffer{})
	assert.Error(t, err)
	_, statErr := os.Stat(cfg.Files.Metadata)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "metadata written despite counter error")
}

func TestCommand_ConfigFlag(t *testing.T) {
	noColor(t)
	saved := configPath
	t.Cleanup(func() { configPath = saved })

	cfg := testConfig(t)
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rig.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var out bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "--scene", "9", "--debug", "0"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	counter, err := os.ReadFile(cfg.Files.Counter)
	require.NoError(t, err)
	assert.Equal(t, "10", string(counter))
	assert.Contains(t, out.String(), "Scene 9")
}

func TestCommand_RejectsArgs(t *testing.T) {
	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}

// ---------- printSummary ----------

func TestPrintSummary(t *testing.T) {
	noColor(t)
	rep := &sequence.Report{
		Plan: sequence.Plan{Scene: 3, Stem: "2024_01_01-10:00:00_AM_scene_3"},
		Rounds: []sequence.RoundReport{
			{Result: capture.Result{Bracket: exposure.Short, Files: []string{"a", "b", "c", "d"}}},
			{Result: capture.Result{Bracket: exposure.Long}, Err: errors.New("incomplete frame")},
		},
		NextScene: 4,
	}

	var out bytes.Buffer
	printSummary(&out, rep)

	s := out.String()
	assert.Contains(t, s, "Scene 3")
	assert.Contains(t, s, "2024_01_01-10:00:00_AM_scene_3")
	assert.Contains(t, s, "short_exposure: 4 files")
	assert.Contains(t, s, "long_exposure: failed: incomplete frame")
	assert.Contains(t, s, "Next scene: 4")
}

func TestPrintSummary_Nil(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, nil)
	assert.Empty(t, out.String())
}
