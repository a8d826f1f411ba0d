package particles

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/windtrails/gpu"
	"github.com/pthm-cable/windtrails/telemetry"
	"github.com/pthm-cable/windtrails/viewport"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("particles: engine closed")

// Options configures an Engine.
type Options struct {
	// TickInterval is the simulation cadence (0 = DefaultTickInterval).
	TickInterval time.Duration
	// Seed seeds the per-tick respawn seeds.
	Seed int64
	// Perf receives kernel and age-shift phase timings. May be nil.
	Perf *telemetry.PerfCollector
}

// Stats counts engine activity since creation.
type Stats struct {
	Ticks          int
	Rebuilds       int
	Clears         int
	AllocatedBytes int
}

// Engine owns one State and drives it: it applies the rebuild policy on
// parameter changes, schedules ticks and hands buffers to the renderer.
// All methods must be called from the same goroutine.
type Engine struct {
	device gpu.Device
	kernel gpu.Kernel
	perf   *telemetry.PerfCollector
	rng    *rand.Rand

	params    Params
	state     *State
	scheduler *Scheduler

	// Camera for the pending tick, captured by Frame.
	camera viewport.Camera
	// Monotonic tick counter used as kernel time.
	time float64

	dirty  bool
	closed bool
	stats  Stats
}

// NewEngine creates an engine with no buffers; call SetParams to allocate.
func NewEngine(dev gpu.Device, kernel gpu.Kernel, opts Options) *Engine {
	e := &Engine{
		device: dev,
		kernel: kernel,
		perf:   opts.Perf,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		state:  &State{},
	}
	e.scheduler = NewScheduler(opts.TickInterval, e.scheduledTick)
	return e
}

// SetParams applies new parameters. A change to the field, NumParticles,
// MaxAge or LineWidth deallocates and reallocates the buffers, losing all
// trails; anything else takes effect on the next tick.
func (e *Engine) SetParams(p Params) error {
	if e.closed {
		return ErrClosed
	}

	prev := e.params
	e.params = p

	reason := rebuildReason(prev, p)
	if reason == "" && (e.state.Initialized() || !p.Valid()) {
		if prev.Color != p.Color {
			return e.state.Recolor(p.Color)
		}
		return nil
	}
	if reason == "" {
		reason = "initial"
	}
	return e.rebuild(reason)
}

func (e *Engine) rebuild(reason string) error {
	if e.state.Initialized() {
		e.stats.Rebuilds++
	}
	e.scheduler.Cancel()
	e.state.Deallocate()

	state, err := Allocate(e.device, e.params)
	e.state = state
	e.dirty = true
	e.stats.AllocatedBytes = state.AllocatedBytes()
	if err != nil {
		slog.Error("particle allocation failed", "reason", reason, "error", err)
		return err
	}
	if !state.Initialized() {
		slog.Info("particles inactive", "reason", reason)
		return nil
	}

	slog.Info("particles allocated",
		"reason", reason,
		"device", e.device.Name(),
		"kernel", e.kernel.Name(),
		"particles", e.params.NumParticles,
		"max_age", e.params.MaxAge,
		"instances", state.NumInstances(),
		"bytes", humanize.IBytes(uint64(state.AllocatedBytes())),
	)
	return nil
}

// Params returns the current parameters.
func (e *Engine) Params() Params { return e.params }

// Frame is called once per rendered frame. With Animate set it keeps a tick
// scheduled, then runs it if due. It reports whether a tick ran.
func (e *Engine) Frame(now time.Time, cam viewport.Camera) (bool, error) {
	if e.closed {
		return false, nil
	}
	e.camera = cam
	if e.params.Animate && e.state.Initialized() {
		e.scheduler.RequestStep(now)
	}
	return e.scheduler.Poll(now)
}

func (e *Engine) scheduledTick() error {
	_, err := e.Step(e.time+1, e.camera)
	return err
}

// Step runs one tick at the given time. A time equal to the previous tick's
// is ignored.
func (e *Engine) Step(time float64, cam viewport.Camera) (bool, error) {
	if e.closed {
		return false, nil
	}
	ran, err := step(e.state, e.kernel, e.params, cam, time, e.rng.Float64(), e.perf)
	if err != nil {
		return false, fmt.Errorf("tick %v: %w", time, err)
	}
	if ran {
		e.time = time
		e.dirty = true
		e.stats.Ticks++
	}
	return ran, nil
}

// Time is the time of the last tick the engine ran.
func (e *Engine) Time() float64 { return e.time }

// Clear empties all trails without deallocating.
func (e *Engine) Clear() error {
	if e.closed || !e.state.Initialized() {
		return nil
	}
	if err := e.state.Clear(); err != nil {
		return err
	}
	e.stats.Clears++
	e.dirty = true
	return nil
}

// NeedsRedraw reports whether anything changed since the last call.
func (e *Engine) NeedsRedraw() bool {
	d := e.dirty
	e.dirty = false
	return d
}

// DrawPair returns the buffers to draw segments between: from holds the
// previous generation and to the current one. Both are nil when the engine
// has no buffers.
func (e *Engine) DrawPair() (from, to gpu.Buffer) {
	if !e.state.Initialized() {
		return nil, nil
	}
	return e.state.Target(), e.state.Source()
}

// State exposes the buffers for reading. Callers must not keep references
// across SetParams or Close.
func (e *Engine) State() *State { return e.state }

// Scheduler exposes the tick scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.scheduler }

// Stats returns activity counters.
func (e *Engine) Stats() Stats { return e.stats }

// Close cancels any pending tick and releases all buffers and the kernel.
// Safe to call more than once.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.scheduler.Cancel()
	e.state.Deallocate()
	e.kernel.Release()
	e.stats.AllocatedBytes = 0
	slog.Info("particles released", "ticks", e.stats.Ticks, "rebuilds", e.stats.Rebuilds)
}
