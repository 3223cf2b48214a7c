package config

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("got %+v", cfg)
	}
}

func TestLoadOverridesAndFills(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
database: /tmp/other.db
floor_plan: plans/level1.png
viewport:
  max_scale: 10
  wheel_factor: 0.5
pins:
  preview_opacity: 3
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := Default()
	if cfg.Database != "/tmp/other.db" {
		t.Errorf("database %q", cfg.Database)
	}
	if cfg.FloorPlan != filepath.Join(dir, "plans", "level1.png") {
		t.Errorf("floor plan not resolved against config dir: %q", cfg.FloorPlan)
	}
	if cfg.Viewport.MaxScale != 10 || cfg.Viewport.MinScale != d.Viewport.MinScale {
		t.Errorf("scale bounds %+v", cfg.Viewport)
	}
	if cfg.Viewport.WheelFactor != d.Viewport.WheelFactor {
		t.Errorf("invalid wheel factor kept: %v", cfg.Viewport.WheelFactor)
	}
	if cfg.Pins.PreviewOpacity != d.Pins.PreviewOpacity || cfg.Pins.FallbackColor != "#E53E3E" {
		t.Errorf("pins %+v", cfg.Pins)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("viewport: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	want := Default()
	want.FloorPlan = "/plans/a.png"
	want.Viewport.DragThreshold = 6
	if err := want.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil || got != want {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestLevel(t *testing.T) {
	cfg := Default()
	if got := cfg.Level(""); got != log.InfoLevel {
		t.Errorf("default level %v", got)
	}
	if got := cfg.Level("1"); got != log.DebugLevel {
		t.Errorf("debug env level %v", got)
	}
	if got := cfg.Level("false"); got != log.InfoLevel {
		t.Errorf("false debug env level %v", got)
	}
	cfg.LogLevel = "warning"
	if got := cfg.Level(""); got != log.WarnLevel {
		t.Errorf("warning level %v", got)
	}
	cfg.LogLevel = "chatty"
	if got := cfg.Level(""); got != log.InfoLevel {
		t.Errorf("unknown level %v", got)
	}
}
