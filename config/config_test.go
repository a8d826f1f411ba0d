package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/windtrails/viewport"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Simulation.NumParticles <= 0 || cfg.Simulation.MaxAge <= 0 || cfg.Simulation.LineWidth <= 0 {
		t.Errorf("defaults should give a valid simulation: %+v", cfg.Simulation)
	}
	if cfg.GPU.Backend != "host" {
		t.Errorf("default backend = %q, want host", cfg.GPU.Backend)
	}
	if want := time.Second / 30; cfg.Derived.TickInterval != want {
		t.Errorf("TickInterval = %v, want %v", cfg.Derived.TickInterval, want)
	}
	if cfg.Derived.Bounds != viewport.World {
		t.Errorf("Bounds = %v, want world", cfg.Derived.Bounds)
	}
	if want := (color.RGBA{R: 140, G: 200, B: 255, A: 230}); cfg.Derived.Color != want {
		t.Errorf("Color = %v, want %v", cfg.Derived.Color, want)
	}
	if cfg.Derived.WindowTicks != 150 {
		t.Errorf("WindowTicks = %d, want 150", cfg.Derived.WindowTicks)
	}
}

func TestLoad_MergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.yaml")
	data := []byte(`
simulation:
  num_particles: 100
  tick_rate: 10
  color: [300, -5, 10, 255]
field:
  bounds: [0, 0, 0, 0]
gpu:
  backend: gl
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Simulation.NumParticles != 100 {
		t.Errorf("NumParticles = %d, want 100", cfg.Simulation.NumParticles)
	}
	if cfg.Simulation.MaxAge != 20 {
		t.Errorf("MaxAge = %d, want default 20", cfg.Simulation.MaxAge)
	}
	if cfg.GPU.Backend != "gl" {
		t.Errorf("Backend = %q, want gl", cfg.GPU.Backend)
	}
	if cfg.Derived.TickInterval != 100*time.Millisecond {
		t.Errorf("TickInterval = %v, want 100ms", cfg.Derived.TickInterval)
	}
	if want := (color.RGBA{R: 255, G: 0, B: 10, A: 255}); cfg.Derived.Color != want {
		t.Errorf("Color = %v, want clamped %v", cfg.Derived.Color, want)
	}
	if cfg.Derived.Bounds != viewport.World {
		t.Errorf("empty bounds should fall back to world, got %v", cfg.Derived.Bounds)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("simulation: [unclosed"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Simulation.NumParticles = 1234

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.Simulation.NumParticles != 1234 {
		t.Errorf("NumParticles = %d after round trip", again.Simulation.NumParticles)
	}
}

func TestCfg_PanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Cfg()
}
