package main

import (
	"fmt"
	"math"
	"sync"

	"github.com/pthm-cable/windtrails/camera"
	"github.com/pthm-cable/windtrails/config"
	"github.com/pthm-cable/windtrails/field"
	"github.com/pthm-cable/windtrails/gpu"
	"github.com/pthm-cable/windtrails/particles"
	"github.com/pthm-cable/windtrails/telemetry"
)

// Targets describe the look being tuned for.
type Targets struct {
	TrailPx       float64 // Median trail length on screen
	SegmentsPerMP float64 // Drawn segments per screen megapixel
	CostWeight    float64 // Penalty per million instances
}

// FitnessEvaluator runs headless simulations and scores them.
type FitnessEvaluator struct {
	params       *ParamVector
	targets      Targets
	measureTicks int
	seeds        []int64
	baseConfig   *config.Config
	field        *field.Field

	mu         sync.Mutex
	lastResult runResult
}

// runResult holds the measurements from one simulation run.
type runResult struct {
	TrailPx       float64
	SegmentsPerMP float64
	Instances     int
}

// NewFitnessEvaluator creates a new evaluator. The field is shared read-only
// by all runs.
func NewFitnessEvaluator(params *ParamVector, targets Targets, measureTicks int, seeds []int64, baseCfg *config.Config, f *field.Field) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:       params,
		targets:      targets,
		measureTicks: max(1, measureTicks),
		seeds:        seeds,
		baseConfig:   baseCfg,
		field:        f,
	}
}

// LastResult returns the seed-averaged measurements of the most recent Evaluate.
func (fe *FitnessEvaluator) LastResult() runResult {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastResult
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx], errs[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var avg runResult
	for i, r := range results {
		if errs[i] != nil {
			return math.Inf(1)
		}
		avg.TrailPx += r.TrailPx
		avg.SegmentsPerMP += r.SegmentsPerMP
		avg.Instances = r.Instances
	}
	n := float64(len(results))
	avg.TrailPx /= n
	avg.SegmentsPerMP /= n

	fe.mu.Lock()
	fe.lastResult = avg
	fe.mu.Unlock()

	return fe.targets.score(avg)
}

// score is the squared relative error against the targets plus the
// instance cost.
func (t Targets) score(r runResult) float64 {
	relErr := func(got, want float64) float64 {
		if want == 0 {
			return 0
		}
		d := (got - want) / want
		return d * d
	}
	return relErr(r.TrailPx, t.TrailPx) +
		relErr(r.SegmentsPerMP, t.SegmentsPerMP) +
		t.CostWeight*float64(r.Instances)/1e6
}

// runSimulation warms the trails up to full length, then samples every tick
// for measureTicks ticks.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (runResult, error) {
	dev := gpu.NewHostDevice(cfg.GPU.MaxBufferBytes)
	engine := particles.NewEngine(dev, gpu.NewHostKernel(), particles.Options{Seed: seed})
	defer engine.Close()

	p := particles.Params{
		NumParticles: cfg.Simulation.NumParticles,
		MaxAge:       cfg.Simulation.MaxAge,
		SpeedFactor:  cfg.Simulation.SpeedFactor,
		Color:        cfg.Derived.Color,
		LineWidth:    cfg.Simulation.LineWidth,
		Bounds:       cfg.Derived.Bounds,
		FieldUnscale: cfg.Field.Unscale,
		Field:        fe.field,
		Animate:      true,
	}
	if err := engine.SetParams(p); err != nil {
		return runResult{}, err
	}

	cam := camera.New(cfg.Derived.ScreenW32, cfg.Derived.ScreenH32, cfg.Camera.CenterLon, cfg.Camera.CenterLat, cfg.Camera.Zoom)
	view := cam.View()
	megapixels := float64(cfg.Screen.Width*cfg.Screen.Height) / 1e6

	warmup := p.MaxAge + 2
	var from, to []float32
	var steps []float64
	var segments int
	for t := 1; t <= warmup+fe.measureTicks; t++ {
		if _, err := engine.Step(float64(t), view); err != nil {
			return runResult{}, err
		}
		if t <= warmup {
			continue
		}

		a, b := engine.DrawPair()
		from = resize(from, a.Len())
		to = resize(to, b.Len())
		if err := a.Read(0, from); err != nil {
			return runResult{}, fmt.Errorf("reading %s: %w", a.Label(), err)
		}
		if err := b.Read(0, to); err != nil {
			return runResult{}, fmt.Errorf("reading %s: %w", b.Label(), err)
		}
		s := telemetry.SampleBuffers(from, to, p.NumParticles)
		steps = append(steps, s.Steps...)
		segments += s.Segments
	}

	_, _, p50, _ := telemetry.Distribution(steps)
	stepPx := p50 / 360 * cam.WorldSize()

	return runResult{
		TrailPx:       stepPx * float64(p.MaxAge),
		SegmentsPerMP: float64(segments) / float64(fe.measureTicks) / megapixels,
		Instances:     p.NumInstances(),
	}, nil
}

// copyConfig creates a copy of the base config that runs can modify.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

func resize(s []float32, n int) []float32 {
	if cap(s) < n {
		return make([]float32, n)
	}
	return s[:n]
}
