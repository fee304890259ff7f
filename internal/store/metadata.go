package store

import (
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Metadata is the parameter dump written next to every run.
type Metadata struct {
	RunID        string    `yaml:"run_id"`
	Stem         string    `yaml:"stem"`
	Scene        int       `yaml:"scene"`
	CapturedAt   time.Time `yaml:"captured_at"`
	Gain         float64   `yaml:"gain"`
	WhiteBalance float64   `yaml:"white_balance"`
	Gamma        float64   `yaml:"gamma"`
	ShortUs      float64   `yaml:"short_exposure_us"`
	LongUs       float64   `yaml:"long_exposure_us"`
	NumImages    int       `yaml:"num_images"`
	SourceRoot   string    `yaml:"source_root"`
	FollowerRoot string    `yaml:"follower_root"`
	MinScene     int       `yaml:"scene_minimum"`
}

// WriteMetadata overwrites path with m as YAML.
func WriteMetadata(path string, m Metadata) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal metadata")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return pkgerrors.Wrap(err, "write metadata")
	}
	return nil
}
