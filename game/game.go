// Package game wires the particle engine to a window, the input devices and
// the telemetry outputs.
package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/windtrails/camera"
	"github.com/pthm-cable/windtrails/config"
	"github.com/pthm-cable/windtrails/field"
	"github.com/pthm-cable/windtrails/gpu"
	"github.com/pthm-cable/windtrails/particles"
	"github.com/pthm-cable/windtrails/renderer"
	"github.com/pthm-cable/windtrails/telemetry"
	"github.com/pthm-cable/windtrails/ui"
)

// Options configures a Game beyond the loaded config.
type Options struct {
	Seed        int64
	LogStats    bool
	FieldPath   string // Overrides field.path
	SnapshotDir string
	OutputDir   string
	Headless    bool
}

// Game holds the complete visualizer state.
type Game struct {
	cfg      *config.Config
	headless bool

	// Simulation
	device   gpu.Device
	engine   *particles.Engine
	field    *field.Field
	settings ui.Settings

	// View
	camera     *camera.Camera
	trails     *renderer.TrailRenderer
	background *renderer.BackgroundRenderer

	// UI
	hud        *ui.HUD
	controls   *ui.ControlsPanel
	statsPanel *ui.StatsPanel
	perfPanel  *ui.PerfPanel
	showStats  bool
	dragging   bool

	// Telemetry
	perf          *telemetry.PerfCollector
	collector     *telemetry.Collector
	outputManager *telemetry.OutputManager
	runID         string
	lastStats     telemetry.WindowStats
	logStats      bool
	snapshotDir   string
	sampleFrom    []float32
	sampleTo      []float32

	// Synthetic clock for headless runs
	clock time.Time

	screenWidth, screenHeight float32
}

// NewGameWithOptions creates a game from the global config. In graphical
// mode the raylib window must already be open.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()

	g := &Game{
		cfg:          cfg,
		headless:     opts.Headless,
		logStats:     opts.LogStats,
		snapshotDir:  opts.SnapshotDir,
		runID:        telemetry.NewRunID(),
		perf:         telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		trails:       renderer.NewTrailRenderer(),
		background:   renderer.NewBackgroundRenderer(30, graticuleColor),
		hud:          ui.NewHUD(),
		controls:     ui.NewControlsPanel(10, 10, 260),
		statsPanel:   ui.NewStatsPanel(10, 10, 260),
		perfPanel:    ui.NewPerfPanel(10, 10),
		screenWidth:  cfg.Derived.ScreenW32,
		screenHeight: cfg.Derived.ScreenH32,
		clock:        time.Unix(0, 0),
		settings: ui.Settings{
			NumParticles: cfg.Simulation.NumParticles,
			MaxAge:       cfg.Simulation.MaxAge,
			SpeedFactor:  cfg.Simulation.SpeedFactor,
			LineWidth:    cfg.Simulation.LineWidth,
			Animate:      cfg.Simulation.Animate,
			Color:        cfg.Derived.Color,
		},
	}
	g.collector = telemetry.NewCollector(cfg.Derived.WindowTicks, cfg.Derived.TickInterval.Seconds(), g.runID)

	if g.headless && !g.settings.Animate {
		slog.Warn("animate is off; enabling it for the headless run")
		g.settings.Animate = true
	}

	g.camera = camera.New(g.screenWidth, g.screenHeight, cfg.Camera.CenterLon, cfg.Camera.CenterLat, cfg.Camera.Zoom)
	g.camera.MinZoom = max(g.camera.MinZoom, cfg.Camera.MinZoom)
	g.camera.MaxZoom = cfg.Camera.MaxZoom
	g.camera.SetZoom(cfg.Camera.Zoom)

	fieldPath := cfg.Field.Path
	if opts.FieldPath != "" {
		fieldPath = opts.FieldPath
	}
	f, err := loadField(cfg, fieldPath)
	if err != nil {
		return nil, err
	}
	g.field = f

	dev, kernel, err := gpu.NewBackend(cfg.GPU.Backend, cfg.GPU.MaxBufferBytes)
	if err != nil {
		return nil, fmt.Errorf("gpu backend: %w", err)
	}
	g.device = dev
	g.engine = particles.NewEngine(dev, kernel, particles.Options{
		TickInterval: cfg.Derived.TickInterval,
		Seed:         opts.Seed,
		Perf:         g.perf,
	})

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir, g.runID)
		if err != nil {
			g.engine.Close()
			return nil, err
		}
		g.outputManager = om
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
	}

	if err := g.engine.SetParams(g.params()); err != nil {
		g.Unload()
		return nil, fmt.Errorf("allocating particles: %w", err)
	}

	g.logStartup()
	return g, nil
}

// loadField reads the field image at path, or generates a noise field when
// path is empty.
func loadField(cfg *config.Config, path string) (*field.Field, error) {
	if path != "" {
		f, err := field.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading field: %w", err)
		}
		return f, nil
	}

	n := cfg.Field.Noise
	f, err := field.NewNoise(field.NoiseConfig{
		Seed:     n.Seed,
		Width:    n.Width,
		Height:   n.Height,
		Scale:    n.Scale,
		Octaves:  n.Octaves,
		MaxSpeed: n.MaxSpeed,
		Unscale:  cfg.Field.Unscale,
	})
	if err != nil {
		return nil, fmt.Errorf("generating noise field: %w", err)
	}
	return f, nil
}

// params assembles engine parameters from the config and the user settings.
func (g *Game) params() particles.Params {
	return particles.Params{
		NumParticles: g.settings.NumParticles,
		MaxAge:       g.settings.MaxAge,
		SpeedFactor:  g.settings.SpeedFactor,
		Color:        g.settings.Color,
		LineWidth:    g.settings.LineWidth,
		Bounds:       g.cfg.Derived.Bounds,
		FieldUnscale: g.cfg.Field.Unscale,
		Field:        g.field,
		Animate:      g.settings.Animate,
	}
}

// applySettings pushes new settings to the engine if they changed.
func (g *Game) applySettings(s ui.Settings) {
	if s == g.settings {
		return
	}
	g.settings = s
	if err := g.engine.SetParams(g.params()); err != nil {
		slog.Error("failed to apply params", "error", err)
	}
}

// Update handles input and runs a tick when one is due.
func (g *Game) Update() {
	g.handleInput()

	g.perf.StartTick()
	g.frame(time.Now())
}

// UpdateHeadless advances a synthetic clock by one tick interval and runs
// exactly one tick.
func (g *Game) UpdateHeadless() {
	g.perf.StartTick()

	// The first frame arms the scheduler, the second lands on its due time.
	g.frame(g.clock)
	g.clock = g.clock.Add(g.engine.Scheduler().Interval())
	g.frame(g.clock)

	g.perf.EndTick()
}

func (g *Game) frame(now time.Time) {
	ran, err := g.engine.Frame(now, g.camera.View())
	if err != nil {
		slog.Error("tick failed", "tick", g.Tick(), "error", err)
		return
	}
	if ran {
		g.flushTelemetry()
	}
}

// step runs a single tick by hand, for stepping while paused.
func (g *Game) step() {
	if _, err := g.engine.Step(g.engine.Time()+1, g.camera.View()); err != nil {
		slog.Error("manual step failed", "error", err)
		return
	}
	g.flushTelemetry()
}

// Tick returns the number of ticks run so far.
func (g *Game) Tick() int {
	return g.engine.Stats().Ticks
}

// Unload releases GPU buffers and closes the output files.
func (g *Game) Unload() {
	if g.engine != nil {
		g.engine.Close()
	}
	g.trails.Unload()
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
