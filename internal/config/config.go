// Package config provides YAML-based solver and editing settings.
package config

import (
	"log"
	"os"
	"path/filepath"

	"sketchpad/internal/solver"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const configFile = "config.yaml"

// Config holds the tunables of the solvers and the editing surface.
type Config struct {
	Driver      DriverConfig      `yaml:"driver"`
	EqualLength EqualLengthConfig `yaml:"equal_length"`
	Snap        SnapConfig        `yaml:"snap"`
}

// DriverConfig tunes the general relaxation driver.
type DriverConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

// EqualLengthConfig tunes the equal-length solver.
type EqualLengthConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	Target        string  `yaml:"target"`
}

// SnapConfig holds distances used while editing, in sketch units.
type SnapConfig struct {
	// PointTolerance is how close a new line endpoint must be to an
	// existing point to reuse it.
	PointTolerance float64 `yaml:"point_tolerance"`
	// HitTolerance is how close a click must be to select or delete.
	HitTolerance float64 `yaml:"hit_tolerance"`
	// MergeThreshold is the distance below which MergeClosePoints fuses.
	MergeThreshold float64 `yaml:"merge_threshold"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Driver: DriverConfig{
			MaxIterations: solver.DefaultMaxIterations,
			Tolerance:     solver.DefaultTolerance,
		},
		EqualLength: EqualLengthConfig{
			MaxIterations: solver.DefaultEqualLengthMaxIterations,
			Tolerance:     solver.DefaultEqualLengthTolerance,
			Target:        solver.TargetPerComponent.String(),
		},
		Snap: SnapConfig{
			PointTolerance: 10,
			HitTolerance:   10,
			MergeThreshold: 5,
		},
	}
}

// DefaultPath returns ~/.config/sketchpad/config.yaml, honoring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "sketchpad", configFile)
}

// LoadDefault reads the config at DefaultPath.
func LoadDefault() (*Config, error) {
	return Load(DefaultPath())
}

// Load reads a config file. Keys missing from the file keep their defaults;
// a missing file yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("Config: %s not found, using defaults", path)
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create config dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}

// Validate rejects settings the solvers cannot run with.
func (c *Config) Validate() error {
	if c.Driver.MaxIterations <= 0 {
		return errors.Errorf("driver.max_iterations must be positive, got %d", c.Driver.MaxIterations)
	}
	if c.Driver.Tolerance <= 0 {
		return errors.Errorf("driver.tolerance must be positive, got %g", c.Driver.Tolerance)
	}
	if c.EqualLength.MaxIterations <= 0 {
		return errors.Errorf("equal_length.max_iterations must be positive, got %d", c.EqualLength.MaxIterations)
	}
	if c.EqualLength.Tolerance <= 0 {
		return errors.Errorf("equal_length.tolerance must be positive, got %g", c.EqualLength.Tolerance)
	}
	if _, err := solver.ParseTargetMode(c.EqualLength.Target); err != nil {
		return err
	}
	if c.Snap.PointTolerance < 0 || c.Snap.HitTolerance < 0 || c.Snap.MergeThreshold < 0 {
		return errors.New("snap distances must not be negative")
	}
	return nil
}

// DriverOptions converts the driver settings.
func (c *Config) DriverOptions() solver.Options {
	return solver.Options{
		MaxIterations: c.Driver.MaxIterations,
		Tolerance:     c.Driver.Tolerance,
	}
}

// EqualLengthOptions converts the equal-length settings. An unparsable
// target falls back to per-component.
func (c *Config) EqualLengthOptions() solver.EqualLengthOptions {
	target, _ := solver.ParseTargetMode(c.EqualLength.Target)
	return solver.EqualLengthOptions{
		MaxIterations: c.EqualLength.MaxIterations,
		Tolerance:     c.EqualLength.Tolerance,
		Target:        target,
	}
}
