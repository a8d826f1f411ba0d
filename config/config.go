// Package config provides configuration loading and access for the visualizer.
package config

import (
	_ "embed"
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/windtrails/viewport"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Field      FieldConfig      `yaml:"field"`
	Camera     CameraConfig     `yaml:"camera"`
	GPU        GPUConfig        `yaml:"gpu"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Title     string `yaml:"title"`
}

// SimulationConfig holds the particle parameters.
type SimulationConfig struct {
	NumParticles int     `yaml:"num_particles"`
	MaxAge       int     `yaml:"max_age"`     // Cohorts per particle (trail length in ticks)
	SpeedFactor  float64 `yaml:"speed_factor"`
	Color        [4]int  `yaml:"color"`       // RGBA, 0-255
	LineWidth    float64 `yaml:"line_width"`
	Animate      bool    `yaml:"animate"`
	TickRate     float64 `yaml:"tick_rate"`   // Ticks per second
	Seed         int64   `yaml:"seed"`
}

// FieldConfig selects the vector field. An empty path uses a noise field.
type FieldConfig struct {
	Path    string      `yaml:"path"`
	Unscale [2]float64  `yaml:"unscale"` // Decode range for the R and G channels
	Bounds  [4]float64  `yaml:"bounds"`  // west, south, east, north
	Noise   NoiseConfig `yaml:"noise"`
}

// NoiseConfig holds procedural field parameters.
type NoiseConfig struct {
	Seed     int64   `yaml:"seed"`
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	Scale    float64 `yaml:"scale"`
	Octaves  int     `yaml:"octaves"`
	MaxSpeed float64 `yaml:"max_speed"`
}

// CameraConfig holds the initial view.
type CameraConfig struct {
	Zoom      float64 `yaml:"zoom"`
	CenterLon float64 `yaml:"center_lon"`
	CenterLat float64 `yaml:"center_lat"`
	MinZoom   float64 `yaml:"min_zoom"`
	MaxZoom   float64 `yaml:"max_zoom"`
}

// GPUConfig selects the compute backend.
type GPUConfig struct {
	Backend        string `yaml:"backend"`          // host or gl
	MaxBufferBytes int    `yaml:"max_buffer_bytes"` // Host allocation cap, 0 = unlimited
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TickInterval time.Duration   // 1/TickRate
	Color        color.RGBA      // Simulation.Color clamped to bytes
	Bounds       viewport.Bounds // Field.Bounds
	ScreenW32    float32
	ScreenH32    float32
	WindowTicks  int // Ticks per stats window
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	rate := c.Simulation.TickRate
	if rate <= 0 {
		rate = 30
	}
	c.Derived.TickInterval = time.Duration(float64(time.Second) / rate)

	var rgba [4]uint8
	for i, v := range c.Simulation.Color {
		rgba[i] = uint8(max(0, min(255, v)))
	}
	c.Derived.Color = color.RGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}

	c.Derived.Bounds = viewport.Bounds(c.Field.Bounds)
	if c.Derived.Bounds == (viewport.Bounds{}) {
		c.Derived.Bounds = viewport.World
	}

	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	c.Derived.WindowTicks = max(1, int(c.Telemetry.StatsWindow*rate))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
