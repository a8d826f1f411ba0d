// Kernel check tool - steps the host and GL backends side by side from the
// same seed and reports where their particle buffers diverge. Optionally
// renders the GL trails to a PNG file for inspection.
//
// Usage: go run ./cmd/kernelcheck -ticks 60 -out trails.png
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windtrails/camera"
	"github.com/pthm-cable/windtrails/config"
	"github.com/pthm-cable/windtrails/field"
	"github.com/pthm-cable/windtrails/gpu"
	"github.com/pthm-cable/windtrails/particles"
	"github.com/pthm-cable/windtrails/renderer"
)

// report summarizes the difference between two position buffers.
type report struct {
	Slots        int
	SentinelDiff int     // Slots live in one buffer and empty in the other
	MaxDiff      float64 // Largest per-component difference over slots live in both
	Over         int     // Live slots whose difference exceeds the tolerance
}

func main() {
	configPath := flag.String("config", "", "Config YAML file (empty = use defaults)")
	ticks := flag.Int("ticks", 60, "Ticks to run on each backend")
	seed := flag.Int64("seed", 1, "Engine seed shared by both backends")
	tolerance := flag.Float64("tolerance", 1e-3, "Allowed per-component difference in degrees")
	outPath := flag.String("out", "", "Render the GL trails to this PNG (empty = skip)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	width, height := int32(cfg.Screen.Width), int32(cfg.Screen.Height)

	// A GL context is needed for the compute backend
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(width, height, "Kernel Check")
	defer rl.CloseWindow()

	f, err := loadField(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load field: %v\n", err)
		os.Exit(1)
	}

	p := particles.Params{
		NumParticles: cfg.Simulation.NumParticles,
		MaxAge:       cfg.Simulation.MaxAge,
		SpeedFactor:  cfg.Simulation.SpeedFactor,
		Color:        cfg.Derived.Color,
		LineWidth:    cfg.Simulation.LineWidth,
		Bounds:       cfg.Derived.Bounds,
		FieldUnscale: cfg.Field.Unscale,
		Field:        f,
		Animate:      true,
	}
	cam := camera.New(cfg.Derived.ScreenW32, cfg.Derived.ScreenH32, cfg.Camera.CenterLon, cfg.Camera.CenterLat, cfg.Camera.Zoom)

	host, err := newEngine(gpu.BackendHost, cfg, p, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start host backend: %v\n", err)
		os.Exit(1)
	}
	defer host.Close()

	gl, err := newEngine(gpu.BackendGL, cfg, p, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start GL backend: %v\n", err)
		os.Exit(1)
	}
	defer gl.Close()

	for t := 1; t <= *ticks; t++ {
		for _, e := range []*particles.Engine{host, gl} {
			if _, err := e.Step(float64(t), cam.View()); err != nil {
				fmt.Fprintf(os.Stderr, "Tick %d failed: %v\n", t, err)
				os.Exit(1)
			}
		}
	}

	want, err := readAll(host.State().Source())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reading host buffer: %v\n", err)
		os.Exit(1)
	}
	got, err := readAll(gl.State().Source())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reading GL buffer: %v\n", err)
		os.Exit(1)
	}

	r := compare(want, got, *tolerance)
	fmt.Printf("%d ticks, %d slots: %d sentinel mismatches, %d over tolerance, max diff %.6f deg\n",
		*ticks, r.Slots, r.SentinelDiff, r.Over, r.MaxDiff)

	if *outPath != "" {
		if err := render(gl, cam, width, height, *outPath); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Trails rendered to: %s (%dx%d)\n", *outPath, width, height)
	}

	if r.SentinelDiff > 0 || r.Over > 0 {
		os.Exit(2)
	}
}

func newEngine(backend string, cfg *config.Config, p particles.Params, seed int64) (*particles.Engine, error) {
	dev, kernel, err := gpu.NewBackend(backend, cfg.GPU.MaxBufferBytes)
	if err != nil {
		return nil, err
	}
	e := particles.NewEngine(dev, kernel, particles.Options{Seed: seed})
	if err := e.SetParams(p); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func readAll(b gpu.Buffer) ([]float32, error) {
	dst := make([]float32, b.Len())
	if err := b.Read(0, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// compare walks both buffers slot by slot. Longitude differences wrap at the
// antimeridian.
func compare(want, got []float32, tolerance float64) report {
	r := report{Slots: min(len(want), len(got)) / 3}
	for slot := 0; slot < r.Slots; slot++ {
		j := slot * 3
		a := gpu.IsSentinel(want[j], want[j+1], want[j+2])
		b := gpu.IsSentinel(got[j], got[j+1], got[j+2])
		if a != b {
			r.SentinelDiff++
			continue
		}
		if a {
			continue
		}
		dx := math.Abs(float64(want[j] - got[j]))
		if dx > 180 {
			dx = 360 - dx
		}
		d := math.Max(dx, math.Abs(float64(want[j+1]-got[j+1])))
		r.MaxDiff = math.Max(r.MaxDiff, d)
		if d > tolerance {
			r.Over++
		}
	}
	return r
}

func render(e *particles.Engine, cam *camera.Camera, width, height int32, path string) error {
	trails := renderer.NewTrailRenderer()
	defer trails.Unload()

	from, to := e.DrawPair()
	if err := trails.Readback(from, to, e.State().Colors()); err != nil {
		return fmt.Errorf("reading back trails: %w", err)
	}
	segments := trails.Build(cam, float32(width), float32(height))

	target := rl.LoadRenderTexture(width, height)
	defer rl.UnloadRenderTexture(target)

	rl.BeginTextureMode(target)
	rl.ClearBackground(rl.Black)
	trails.Draw(segments, e.State().Width())
	rl.EndTextureMode()

	// Flip the image (OpenGL convention)
	img := rl.LoadImageFromTexture(target.Texture)
	defer rl.UnloadImage(img)
	rl.ImageFlipVertical(img)

	if !rl.ExportImage(*img, path) {
		return fmt.Errorf("failed to export %s", path)
	}
	return nil
}

func loadField(cfg *config.Config) (*field.Field, error) {
	if cfg.Field.Path != "" {
		return field.Load(cfg.Field.Path)
	}
	n := cfg.Field.Noise
	return field.NewNoise(field.NoiseConfig{
		Seed:     n.Seed,
		Width:    n.Width,
		Height:   n.Height,
		Scale:    n.Scale,
		Octaves:  n.Octaves,
		MaxSpeed: n.MaxSpeed,
		Unscale:  cfg.Field.Unscale,
	})
}
