package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for a simulation tick and the frame that draws it.
const (
	PhaseKernel   = "kernel"
	PhaseAgeShift = "age_shift"
	PhaseReadback = "readback"
	PhaseDraw     = "draw"
)

var phases = [...]string{PhaseKernel, PhaseAgeShift, PhaseReadback, PhaseDraw}

// Phases lists the phase names in execution order.
func Phases() []string {
	return append([]string(nil), phases[:]...)
}

func phaseIndex(name string) int {
	for i, p := range phases {
		if p == name {
			return i
		}
	}
	return -1
}

// frameTiming is one update+draw cycle split by phase.
type frameTiming struct {
	total  time.Duration
	phases [len(phases)]time.Duration
}

// PerfCollector keeps running sums of phase timings over the last
// windowSize frames. Recording methods are no-ops on a nil collector.
type PerfCollector struct {
	ring   []frameTiming
	next   int
	filled int
	sum    frameTiming

	cur        frameTiming
	tickStart  time.Time
	phaseStart time.Time
	phase      int
	seen       [len(phases)]bool

	lastFrame time.Time
	frameDur  time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{ring: make([]frameTiming, windowSize), phase: -1}
}

// StartTick opens a new frame.
func (p *PerfCollector) StartTick() {
	if p == nil {
		return
	}
	p.tickStart = time.Now()
	p.cur = frameTiming{}
	p.phase = -1
}

// StartPhase closes the running phase and starts timing the named one.
// Unknown names only close the running phase.
func (p *PerfCollector) StartPhase(name string) {
	if p == nil {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phaseIndex(name)
	if p.phase >= 0 {
		p.seen[p.phase] = true
	}
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.phase = -1
}

// EndTick closes the frame and folds it into the window.
func (p *PerfCollector) EndTick() {
	if p == nil {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.tickStart)

	old := p.ring[p.next]
	p.sum.total += p.cur.total - old.total
	for i := range p.sum.phases {
		p.sum.phases[i] += p.cur.phases[i] - old.phases[i]
	}
	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.filled = min(p.filled+1, len(p.ring))
}

// RecordFrame marks a presented frame for FPS.
func (p *PerfCollector) RecordFrame() {
	if p == nil {
		return
	}
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frameDur = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats is the window average per frame.
type PerfStats struct {
	AvgTickDuration time.Duration
	PhaseAvg        map[string]time.Duration
	PhasePct        map[string]float64 // Share of AvgTickDuration
	FrameDuration   time.Duration
	FPS             float64
}

// Stats averages the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{PhaseAvg: map[string]time.Duration{}, PhasePct: map[string]float64{}}
	if p == nil {
		return s
	}
	s.FrameDuration = p.frameDur
	if p.frameDur > 0 {
		s.FPS = float64(time.Second) / float64(p.frameDur)
	}
	if p.filled == 0 {
		return s
	}

	n := time.Duration(p.filled)
	s.AvgTickDuration = p.sum.total / n
	for i, name := range phases {
		if !p.seen[i] {
			continue
		}
		avg := p.sum.phases[i] / n
		s.PhaseAvg[name] = avg
		if s.AvgTickDuration > 0 {
			s.PhasePct[name] = float64(avg) / float64(s.AvgTickDuration) * 100
		}
	}
	return s
}

// LogStats logs the window averages.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{slog.Int64("avg_frame_us", s.AvgTickDuration.Microseconds())}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Int("fps", int(s.FPS)))
	}
	for _, name := range phases {
		if pct, ok := s.PhasePct[name]; ok {
			attrs = append(attrs, slog.Float64(name+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	RunID       string  `csv:"run_id"`
	WindowEnd   int32   `csv:"window_end"`
	AvgFrameUS  int64   `csv:"avg_frame_us"`
	FPS         float64 `csv:"fps"`
	KernelPct   float64 `csv:"kernel_pct"`
	AgeShiftPct float64 `csv:"age_shift_pct"`
	ReadbackPct float64 `csv:"readback_pct"`
	DrawPct     float64 `csv:"draw_pct"`
}

// ToCSV flattens the stats for perf.csv.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:   windowEnd,
		AvgFrameUS:  s.AvgTickDuration.Microseconds(),
		FPS:         s.FPS,
		KernelPct:   s.PhasePct[PhaseKernel],
		AgeShiftPct: s.PhasePct[PhaseAgeShift],
		ReadbackPct: s.PhasePct[PhaseReadback],
		DrawPct:     s.PhasePct[PhaseDraw],
	}
}
