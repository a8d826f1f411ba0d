package telemetry

// Counters are cumulative engine counts. The collector reports per-window
// differences.
type Counters struct {
	Ticks    int
	Rebuilds int
	Clears   int
}

// Collector turns cumulative counters and buffer samples into WindowStats.
type Collector struct {
	windowDurationTicks int32
	tickSeconds         float64
	runID               string

	// Current window tracking
	windowStartTick int32
	last            Counters
}

// NewCollector creates a new stats collector.
// windowTicks: ticks per window; tickSeconds: seconds per tick.
func NewCollector(windowTicks int, tickSeconds float64, runID string) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: int32(windowTicks),
		tickSeconds:         tickSeconds,
		runID:               runID,
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and starts the next window.
func (c *Collector) Flush(currentTick int32, counters Counters, sample Sample, zoom float64, allocatedBytes int) WindowStats {
	mean, p10, p50, p90 := Distribution(sample.Steps)

	var fill float64
	if sample.Instances > 0 {
		fill = float64(sample.Segments) / float64(sample.Instances)
	}

	stats := WindowStats{
		RunID:           c.runID,
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.tickSeconds,

		Ticks:    counters.Ticks - c.last.Ticks,
		Rebuilds: counters.Rebuilds - c.last.Rebuilds,
		Clears:   counters.Clears - c.last.Clears,

		ActiveParticles: sample.ActiveParticles,
		Segments:        sample.Segments,
		Fill:            fill,

		StepMean: mean,
		StepP10:  p10,
		StepP50:  p50,
		StepP90:  p90,

		Zoom:           zoom,
		AllocatedBytes: allocatedBytes,
	}

	c.windowStartTick = currentTick
	c.last = counters
	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
