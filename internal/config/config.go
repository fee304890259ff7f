package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/BracketGo/internal/logic/exposure"
	"github.com/cjeanneret/BracketGo/internal/logic/params"
	"github.com/cjeanneret/BracketGo/internal/logic/trigger"
)

// MaxConfigFileBytes bounds the size of a config file.
const MaxConfigFileBytes = 1 << 20

// Round failure policies.
const (
	RoundFailureContinue = "continue" // run the remaining brackets anyway
	RoundFailureAbort    = "abort"    // skip the remaining brackets
)

// CamerasConfig identifies the two cameras and where their images go.
type CamerasConfig struct {
	Backend        string `yaml:"backend"`         // SDK backend, e.g. "sim"
	SourceSerial   string `yaml:"source_serial"`   // camera driving the trigger line
	FollowerSerial string `yaml:"follower_serial"` // hardware-triggered camera
	SourceRoot     string `yaml:"source_root"`     // output root of the source camera
	FollowerRoot   string `yaml:"follower_root"`   // output root of the follower camera
}

// TriggerConfig names the I/O lines cabled between the cameras.
type TriggerConfig struct {
	SourceLine   string `yaml:"source_line"`
	FollowerLine string `yaml:"follower_line"`
}

// ParamsConfig is the image parameter set applied to both cameras.
type ParamsConfig struct {
	Gain            float64 `yaml:"gain"`              // dB
	WhiteBalance    float64 `yaml:"white_balance"`     // balance ratio
	Gamma           float64 `yaml:"gamma"`             //
	ShortExposureUs float64 `yaml:"short_exposure_us"` // microseconds
	LongExposureUs  float64 `yaml:"long_exposure_us"`  // microseconds
	NumImages       int     `yaml:"num_images"`        // recorded in metadata only
	Scene           int     `yaml:"scene"`             // minimum scene number
}

// FilesConfig locates the run's bookkeeping files.
type FilesConfig struct {
	Counter         string `yaml:"counter"`          // scene counter file
	Metadata        string `yaml:"metadata"`         // parameter dump, overwritten each run
	Catalog         string `yaml:"catalog"`          // sqlite catalog; empty = disabled
	MetricsTextfile string `yaml:"metrics_textfile"` // node_exporter textfile; empty = disabled
}

// SequenceConfig controls the run sequencer.
type SequenceConfig struct {
	RoundFailure string `yaml:"round_failure"` // "continue" or "abort"
}

// DefaultsConfig contains host-level settings.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	BusyPin    int  `yaml:"busy_pin"`    // BCM pin held high during capture. 0 = not used.
}

// Config aggregates all application configuration.
type Config struct {
	Cameras  CamerasConfig  `yaml:"cameras"`
	Trigger  TriggerConfig  `yaml:"trigger"`
	Params   ParamsConfig   `yaml:"params"`
	Files    FilesConfig    `yaml:"files"`
	Sequence SequenceConfig `yaml:"sequence"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the configuration of the reference rig.
func Default() *Config {
	return &Config{
		Cameras: CamerasConfig{
			Backend:        "sim",
			SourceSerial:   "21369579",
			FollowerSerial: "21369581",
			SourceRoot:     "dataset/cam1",
			FollowerRoot:   "dataset/cam2",
		},
		Trigger: TriggerConfig{
			SourceLine:   trigger.DefaultLines.Source,
			FollowerLine: trigger.DefaultLines.Follower,
		},
		Params: ParamsConfig{
			Gain:            0,
			WhiteBalance:    1.32,
			Gamma:           1,
			ShortExposureUs: 100000,
			LongExposureUs:  10000000,
			NumImages:       1,
			Scene:           1,
		},
		Files: FilesConfig{
			Counter:  "scene_value.txt",
			Metadata: "metadata.txt",
		},
		Sequence: SequenceConfig{RoundFailure: RoundFailureContinue},
		Defaults: DefaultsConfig{DebugLevel: 1, MockGPIO: true},
	}
}

// ValidateConfigPath accepts YAML files only. Relative paths may not climb
// above the working directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if !filepath.IsAbs(path) {
		for _, part := range strings.Split(filepath.ToSlash(path), "/") {
			if part == ".." {
				return fmt.Errorf("config path %q must not contain ..", path)
			}
		}
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return nil
	default:
		return fmt.Errorf("config path %q must have a .yaml or .yml extension", path)
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, MaxConfigFileBytes)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the rig can't run with.
func (c *Config) Validate() error {
	if c.Cameras.Backend == "" {
		return fmt.Errorf("cameras.backend is required")
	}
	if c.Cameras.SourceSerial == "" || c.Cameras.FollowerSerial == "" {
		return fmt.Errorf("cameras.source_serial and cameras.follower_serial are required")
	}
	if c.Cameras.SourceSerial == c.Cameras.FollowerSerial {
		return fmt.Errorf("source and follower must be different cameras, both are %s", c.Cameras.SourceSerial)
	}
	if c.Cameras.SourceRoot == "" || c.Cameras.FollowerRoot == "" {
		return fmt.Errorf("cameras.source_root and cameras.follower_root are required")
	}
	if c.Cameras.SourceRoot == c.Cameras.FollowerRoot {
		return fmt.Errorf("source and follower roots must differ, both are %s", c.Cameras.SourceRoot)
	}
	if c.Trigger.SourceLine == "" || c.Trigger.FollowerLine == "" {
		return fmt.Errorf("trigger.source_line and trigger.follower_line are required")
	}
	if c.Params.ShortExposureUs <= 0 {
		return fmt.Errorf("params.short_exposure_us must be > 0, got %g", c.Params.ShortExposureUs)
	}
	if c.Params.LongExposureUs <= 0 {
		return fmt.Errorf("params.long_exposure_us must be > 0, got %g", c.Params.LongExposureUs)
	}
	if c.Params.WhiteBalance <= 0 {
		return fmt.Errorf("params.white_balance must be > 0, got %g", c.Params.WhiteBalance)
	}
	if c.Params.Scene < 0 {
		return fmt.Errorf("params.scene must be >= 0, got %d", c.Params.Scene)
	}
	if c.Files.Counter == "" {
		return fmt.Errorf("files.counter is required")
	}
	switch c.Sequence.RoundFailure {
	case RoundFailureContinue, RoundFailureAbort:
	case "":
		c.Sequence.RoundFailure = RoundFailureContinue
	default:
		return fmt.Errorf("sequence.round_failure must be %q or %q, got %q",
			RoundFailureContinue, RoundFailureAbort, c.Sequence.RoundFailure)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	if c.Defaults.BusyPin < 0 {
		return fmt.Errorf("defaults.busy_pin must be >= 0, got %d", c.Defaults.BusyPin)
	}
	return nil
}

// Settings returns the image parameter set.
func (c *Config) Settings() params.Settings {
	return params.Settings{
		Gain:         c.Params.Gain,
		WhiteBalance: c.Params.WhiteBalance,
		Gamma:        c.Params.Gamma,
	}
}

// Presets returns the exposure bracket presets.
func (c *Config) Presets() exposure.Presets {
	return exposure.Presets{
		ShortUs: c.Params.ShortExposureUs,
		LongUs:  c.Params.LongExposureUs,
	}
}

// Lines returns the trigger cabling.
func (c *Config) Lines() trigger.Lines {
	return trigger.Lines{Source: c.Trigger.SourceLine, Follower: c.Trigger.FollowerLine}
}

// AbortOnRoundFailure reports whether a failed round skips the remaining ones.
func (c *Config) AbortOnRoundFailure() bool {
	return c.Sequence.RoundFailure == RoundFailureAbort
}
