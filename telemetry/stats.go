package telemetry

import (
	"log/slog"
	"math"
	"sort"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	RunID           string  `csv:"run_id"`
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Activity during window
	Ticks    int `csv:"ticks"`
	Rebuilds int `csv:"rebuilds"`
	Clears   int `csv:"clears"`

	// Population at window end
	ActiveParticles int     `csv:"active"`   // Live slots in the youngest cohort
	Segments        int     `csv:"segments"` // Slots with both ends live
	Fill            float64 `csv:"fill"`     // Segments / instances

	// Per-tick displacement of the youngest cohort, degrees
	StepMean float64 `csv:"step_mean"`
	StepP10  float64 `csv:"step_p10"`
	StepP50  float64 `csv:"step_p50"`
	StepP90  float64 `csv:"step_p90"`

	Zoom           float64 `csv:"zoom"`
	AllocatedBytes int     `csv:"allocated_bytes"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution calculates mean and percentiles. values is sorted in place.
func Distribution(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sort.Float64s(values)
	return mean, Percentile(values, 0.10), Percentile(values, 0.50), Percentile(values, 0.90)
}

// Sample is a point-in-time view of the particle buffers.
type Sample struct {
	ActiveParticles int
	Segments        int
	Instances       int
	Steps           []float64 // Youngest-cohort displacement in degrees
}

// SampleBuffers inspects read-back position buffers. from holds the previous
// generation and to the current one; both use 3 floats per slot.
func SampleBuffers(from, to []float32, numParticles int) Sample {
	s := Sample{Instances: len(to) / 3}
	for slot := 0; slot < s.Instances; slot++ {
		j := slot * 3
		live := to[j] != 0 || to[j+1] != 0 || to[j+2] != 0
		prevLive := from[j] != 0 || from[j+1] != 0 || from[j+2] != 0
		if !live {
			continue
		}
		if slot < numParticles {
			s.ActiveParticles++
		}
		if !prevLive {
			continue
		}
		s.Segments++
		if slot < numParticles {
			dx := math.Abs(float64(to[j] - from[j]))
			if dx > 180 {
				dx = 360 - dx
			}
			dy := float64(to[j+1] - from[j+1])
			s.Steps = append(s.Steps, math.Hypot(dx, dy))
		}
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("ticks", s.Ticks),
		slog.Int("rebuilds", s.Rebuilds),
		slog.Int("clears", s.Clears),
		slog.Int("active", s.ActiveParticles),
		slog.Int("segments", s.Segments),
		slog.Float64("fill", s.Fill),
		slog.Float64("step_mean", s.StepMean),
		slog.Float64("step_p50", s.StepP50),
		slog.Float64("step_p90", s.StepP90),
		slog.Float64("zoom", s.Zoom),
		slog.Int("allocated_bytes", s.AllocatedBytes),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"ticks", s.Ticks,
		"rebuilds", s.Rebuilds,
		"clears", s.Clears,
		"active", s.ActiveParticles,
		"segments", s.Segments,
		"fill", s.Fill,
		"step_p50", s.StepP50,
		"zoom", s.Zoom,
	)
}
