package particles

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/pthm-cable/windtrails/gpu"
	"github.com/pthm-cable/windtrails/telemetry"
	"github.com/pthm-cable/windtrails/viewport"
)

const testInterval = 10 * time.Millisecond

func newTestEngine(t *testing.T, p Params) (*Engine, *gpu.HostDevice, *scriptKernel) {
	t.Helper()
	dev := gpu.NewHostDevice(0)
	k := &scriptKernel{write: markerOnce}
	e := NewEngine(dev, k, Options{TickInterval: testInterval, Seed: 1})
	if err := e.SetParams(p); err != nil {
		t.Fatalf("SetParams: %v", err)
	}
	return e, dev, k
}

func TestEngine_InvalidParamsInactive(t *testing.T) {
	p := testParams(t, 0, 3)
	e, dev, k := newTestEngine(t, p)

	if e.State().Initialized() {
		t.Error("engine initialized with zero particles")
	}
	if dev.AllocatedBytes() != 0 {
		t.Errorf("allocated %d bytes", dev.AllocatedBytes())
	}
	if from, to := e.DrawPair(); from != nil || to != nil {
		t.Error("DrawPair should be empty when inactive")
	}
	for i := 0; i < 5; i++ {
		ran, err := e.Frame(epoch.Add(time.Duration(i)*testInterval), testCamera)
		if ran || err != nil {
			t.Errorf("Frame %d = (%v, %v), want (false, nil)", i, ran, err)
		}
	}
	if len(k.calls) != 0 {
		t.Error("kernel ran while inactive")
	}
	if err := e.Clear(); err != nil {
		t.Errorf("Clear while inactive: %v", err)
	}
}

func TestEngine_FrameAnimates(t *testing.T) {
	e, _, k := newTestEngine(t, testParams(t, 4, 3))

	if ran, _ := e.Frame(epoch, testCamera); ran {
		t.Error("tick ran before its interval elapsed")
	}
	if !e.Scheduler().Pending() {
		t.Fatal("Frame should arm a tick when animating")
	}
	ran, err := e.Frame(epoch.Add(testInterval), testCamera)
	if !ran || err != nil {
		t.Fatalf("Frame at due = (%v, %v)", ran, err)
	}
	if e.Time() != 1 || len(k.calls) != 1 {
		t.Errorf("time = %v, kernel calls = %d, want 1/1", e.Time(), len(k.calls))
	}

	// Frames faster than the interval do not add ticks
	for i := 1; i <= 4; i++ {
		e.Frame(epoch.Add(testInterval+time.Duration(i)*time.Millisecond), testCamera)
	}
	if len(k.calls) != 1 {
		t.Errorf("kernel calls = %d after fast frames, want 1", len(k.calls))
	}

	e.Frame(epoch.Add(3*testInterval), testCamera)
	if e.Time() != 2 || e.Stats().Ticks != 2 {
		t.Errorf("time = %v, ticks = %d, want 2/2", e.Time(), e.Stats().Ticks)
	}
}

func TestEngine_AnimateOff(t *testing.T) {
	p := testParams(t, 4, 3)
	p.Animate = false
	e, _, k := newTestEngine(t, p)

	e.Frame(epoch, testCamera)
	e.Frame(epoch.Add(time.Second), testCamera)
	if len(k.calls) != 0 {
		t.Error("ticked with animation off")
	}

	ran, err := e.Step(1, testCamera)
	if !ran || err != nil {
		t.Errorf("manual Step = (%v, %v)", ran, err)
	}
	if ran, _ := e.Step(1, testCamera); ran {
		t.Error("manual Step repeated the same time")
	}
}

func TestEngine_RebuildPolicy(t *testing.T) {
	base := testParams(t, 4, 3)
	tests := []struct {
		name    string
		modify  func(p *Params)
		rebuild bool
	}{
		{"speed", func(p *Params) { p.SpeedFactor = 5 }, false},
		{"bounds", func(p *Params) { p.Bounds = viewport.Bounds{-10, -10, 10, 10} }, false},
		{"unscale", func(p *Params) { p.FieldUnscale = [2]float64{0, 1} }, false},
		{"animate", func(p *Params) { p.Animate = false }, false},
		{"color", func(p *Params) { p.Color = color.RGBA{G: 255, A: 255} }, false},
		{"field", func(p *Params) { p.Field = testField(t) }, true},
		{"particles", func(p *Params) { p.NumParticles = 8 }, true},
		{"max age", func(p *Params) { p.MaxAge = 5 }, true},
		{"line width", func(p *Params) { p.LineWidth = 3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, dev, _ := newTestEngine(t, base)
			e.Step(1, testCamera)
			before := e.State()

			next := base
			tt.modify(&next)
			if err := e.SetParams(next); err != nil {
				t.Fatalf("SetParams: %v", err)
			}

			rebuilt := e.State() != before
			if rebuilt != tt.rebuild {
				t.Errorf("rebuilt = %v, want %v", rebuilt, tt.rebuild)
			}
			if tt.rebuild {
				if e.Stats().Rebuilds != 1 {
					t.Errorf("Rebuilds = %d, want 1", e.Stats().Rebuilds)
				}
				if !allZero(hostData(e.State().Source())) {
					t.Error("rebuild kept trail history")
				}
				if before.Initialized() {
					t.Error("old state still initialized after rebuild")
				}
				if dev.AllocatedBytes() != e.State().AllocatedBytes() {
					t.Errorf("device holds %d bytes, state %d", dev.AllocatedBytes(), e.State().AllocatedBytes())
				}
			} else if e.State().PreviousTime() != 1 {
				t.Error("live change reset the simulation")
			}
		})
	}
}

func TestEngine_ColorChangeRecolors(t *testing.T) {
	base := testParams(t, 2, 2)
	e, _, _ := newTestEngine(t, base)

	next := base
	next.Color = color.RGBA{B: 255, A: 255}
	e.SetParams(next)

	colors := hostData(e.State().Colors())
	if colors[2] != 1 || colors[3] != 1 {
		t.Errorf("cohort 0 color = %v, want opaque blue", colors[:4])
	}
}

func TestEngine_BecomesActive(t *testing.T) {
	p := testParams(t, 0, 3)
	e, _, _ := newTestEngine(t, p)

	p.NumParticles = 4
	if err := e.SetParams(p); err != nil {
		t.Fatalf("SetParams: %v", err)
	}
	if !e.State().Initialized() {
		t.Error("engine should allocate once params become valid")
	}
	if e.Stats().Rebuilds != 0 {
		t.Errorf("Rebuilds = %d, first allocation is not a rebuild", e.Stats().Rebuilds)
	}

	p.LineWidth = 0
	e.SetParams(p)
	if e.State().Initialized() {
		t.Error("engine should deallocate when params become invalid")
	}
}

func TestEngine_AllocationFailure(t *testing.T) {
	dev := gpu.NewHostDevice(100)
	e := NewEngine(dev, &scriptKernel{}, Options{TickInterval: testInterval})

	err := e.SetParams(testParams(t, 4, 3))
	if !errors.Is(err, gpu.ErrAllocation) {
		t.Fatalf("SetParams = %v, want ErrAllocation", err)
	}
	if e.State().Initialized() {
		t.Error("engine initialized after failed allocation")
	}
	if ran, _ := e.Frame(epoch.Add(time.Second), testCamera); ran {
		t.Error("ticked after failed allocation")
	}
}

func TestEngine_RebuildCancelsPendingTick(t *testing.T) {
	base := testParams(t, 4, 3)
	e, _, k := newTestEngine(t, base)

	e.Frame(epoch, testCamera)
	next := base
	next.NumParticles = 6
	e.SetParams(next)

	if e.Scheduler().Pending() {
		t.Error("rebuild left a tick pending")
	}
	e.Frame(epoch.Add(testInterval/2), testCamera)
	if ran, _ := e.Frame(epoch.Add(testInterval), testCamera); ran {
		t.Error("tick armed before the rebuild ran")
	}
	if len(k.calls) != 0 {
		t.Errorf("kernel calls = %d, want 0", len(k.calls))
	}
}

func TestEngine_CloseCancelsPendingTick(t *testing.T) {
	e, dev, k := newTestEngine(t, testParams(t, 4, 3))

	e.Frame(epoch, testCamera)
	if !e.Scheduler().Pending() {
		t.Fatal("expected a pending tick")
	}

	e.Close()
	if e.Scheduler().Pending() {
		t.Error("Close left a tick pending")
	}
	if ran, err := e.Frame(epoch.Add(time.Second), testCamera); ran || err != nil {
		t.Errorf("Frame after Close = (%v, %v)", ran, err)
	}
	if len(k.calls) != 0 {
		t.Error("pending tick ran after Close")
	}
	if dev.AllocatedBytes() != 0 {
		t.Errorf("%d bytes still allocated after Close", dev.AllocatedBytes())
	}
	if k.released != 1 {
		t.Errorf("kernel released %d times, want 1", k.released)
	}

	e.Close()
	if k.released != 1 {
		t.Error("second Close released the kernel again")
	}
	if err := e.SetParams(testParams(t, 4, 3)); !errors.Is(err, ErrClosed) {
		t.Errorf("SetParams after Close = %v, want ErrClosed", err)
	}
}

func TestEngine_ClearAndRedraw(t *testing.T) {
	e, _, _ := newTestEngine(t, testParams(t, 4, 3))
	e.NeedsRedraw()

	e.Step(1, testCamera)
	if !e.NeedsRedraw() {
		t.Error("tick should request a redraw")
	}
	if e.NeedsRedraw() {
		t.Error("NeedsRedraw should reset on read")
	}

	if err := e.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if !allZero(hostData(e.State().Source())) || !allZero(hostData(e.State().Target())) {
		t.Error("Clear left trail history")
	}
	if !e.State().Initialized() {
		t.Error("Clear deallocated the engine")
	}
	if e.Stats().Clears != 1 || !e.NeedsRedraw() {
		t.Error("Clear should count and request a redraw")
	}
}

func TestEngine_DrawPair(t *testing.T) {
	e, _, _ := newTestEngine(t, testParams(t, 2, 3))
	e.Step(1, testCamera)
	e.Step(2, testCamera)

	from, to := e.DrawPair()
	if from != e.State().Target() || to != e.State().Source() {
		t.Fatal("DrawPair should return (target, source)")
	}
	if got := cohortOf(e.State(), hostData(from)); got != 0 {
		t.Errorf("from marker in cohort %d, want 0", got)
	}
	if got := cohortOf(e.State(), hostData(to)); got != 1 {
		t.Errorf("to marker in cohort %d, want 1", got)
	}
}

func TestEngine_TimeSurvivesRebuild(t *testing.T) {
	base := testParams(t, 4, 3)
	e, _, _ := newTestEngine(t, base)
	e.Step(1, testCamera)
	e.Step(2, testCamera)

	next := base
	next.MaxAge = 4
	e.SetParams(next)

	e.Frame(epoch, testCamera)
	e.Frame(epoch.Add(testInterval), testCamera)
	if e.Time() != 3 {
		t.Errorf("Time = %v after rebuild, want 3", e.Time())
	}
}

func TestEngine_RecordsPhases(t *testing.T) {
	dev := gpu.NewHostDevice(0)
	perf := telemetry.NewPerfCollector(4)
	e := NewEngine(dev, gpu.NewHostKernel(), Options{Perf: perf})
	e.SetParams(testParams(t, 4, 3))

	perf.StartTick()
	e.Step(1, testCamera)
	perf.EndTick()

	stats := perf.Stats()
	if _, ok := stats.PhaseAvg[telemetry.PhaseKernel]; !ok {
		t.Error("kernel phase not recorded")
	}
	if _, ok := stats.PhaseAvg[telemetry.PhaseAgeShift]; !ok {
		t.Error("age_shift phase not recorded")
	}
}
