// Package config loads the application configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"siteplan/internal/gesture"
	"siteplan/internal/viewport"
)

// AppName names the per-user config directory.
const AppName = "siteplan"

// DefaultDragThreshold is how far (screen px) a pointer may travel before a
// press becomes a drag instead of a tap.
const DefaultDragThreshold = 3.0

// Viewport holds the zoom clamp and gesture tuning.
type Viewport struct {
	MinScale      float64 `yaml:"min_scale"`
	MaxScale      float64 `yaml:"max_scale"`
	WheelFactor   float64 `yaml:"wheel_factor"`
	DragThreshold float64 `yaml:"drag_threshold"`
}

// Pins holds marker colors.
type Pins struct {
	FallbackColor  string  `yaml:"fallback_color"`
	PreviewColor   string  `yaml:"preview_color"`
	PreviewOpacity float64 `yaml:"preview_opacity"`
}

// Config is the full configuration file.
type Config struct {
	Database  string   `yaml:"database"`
	FloorPlan string   `yaml:"floor_plan"`
	LogLevel  string   `yaml:"log_level"`
	Viewport  Viewport `yaml:"viewport"`
	Pins      Pins     `yaml:"pins"`
}

// Dir returns the per-user configuration directory.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, AppName)
}

// DefaultPath returns the config file location used when no -config flag is
// given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: filepath.Join(Dir(), "siteplan.db"),
		LogLevel: "info",
		Viewport: Viewport{
			MinScale:      viewport.DefaultMinScale,
			MaxScale:      viewport.DefaultMaxScale,
			WheelFactor:   gesture.DefaultWheelFactor,
			DragThreshold: DefaultDragThreshold,
		},
		Pins: Pins{
			FallbackColor:  "#E53E3E",
			PreviewColor:   "#A0AEC0",
			PreviewOpacity: 0.8,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("Config: %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fill()
	if cfg.FloorPlan != "" && !filepath.IsAbs(cfg.FloorPlan) {
		cfg.FloorPlan = filepath.Join(filepath.Dir(path), cfg.FloorPlan)
	}
	return cfg, nil
}

// fill restores defaults for zero or out-of-range values.
func (c *Config) fill() {
	d := Default()
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Viewport.MinScale <= 0 {
		c.Viewport.MinScale = d.Viewport.MinScale
	}
	if c.Viewport.MaxScale <= 0 {
		c.Viewport.MaxScale = d.Viewport.MaxScale
	}
	if c.Viewport.MinScale > c.Viewport.MaxScale {
		log.Warnf("Config: min_scale %v > max_scale %v, using defaults", c.Viewport.MinScale, c.Viewport.MaxScale)
		c.Viewport.MinScale, c.Viewport.MaxScale = d.Viewport.MinScale, d.Viewport.MaxScale
	}
	if c.Viewport.WheelFactor <= 1 {
		c.Viewport.WheelFactor = d.Viewport.WheelFactor
	}
	if c.Viewport.DragThreshold <= 0 {
		c.Viewport.DragThreshold = d.Viewport.DragThreshold
	}
	if c.Pins.FallbackColor == "" {
		c.Pins.FallbackColor = d.Pins.FallbackColor
	}
	if c.Pins.PreviewColor == "" {
		c.Pins.PreviewColor = d.Pins.PreviewColor
	}
	if c.Pins.PreviewOpacity <= 0 || c.Pins.PreviewOpacity > 1 {
		c.Pins.PreviewOpacity = d.Pins.PreviewOpacity
	}
}

// Save writes the configuration to path, creating the directory.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Level resolves the log level. debugEnv (the SITEPLAN_DEBUG variable) forces
// debug logging when set to anything but "", "0" or "false".
func (c Config) Level(debugEnv string) log.Level {
	switch strings.ToLower(strings.TrimSpace(debugEnv)) {
	case "", "0", "false":
	default:
		return log.DebugLevel
	}
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
