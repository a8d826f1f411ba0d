package game

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/pthm-cable/windtrails/telemetry"
)

// flushTelemetry closes the stats window when enough ticks have run.
func (g *Game) flushTelemetry() {
	tick := int32(g.Tick())
	if !g.collector.ShouldFlush(tick) {
		return
	}

	sample, err := g.sample()
	if err != nil {
		slog.Error("failed to sample buffers", "error", err)
	}

	es := g.engine.Stats()
	counters := telemetry.Counters{Ticks: es.Ticks, Rebuilds: es.Rebuilds, Clears: es.Clears}
	stats := g.collector.Flush(tick, counters, sample, g.camera.Zoom, es.AllocatedBytes)
	perfStats := g.perf.Stats()
	g.lastStats = stats

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// sample reads the current draw pair back and summarizes it.
func (g *Game) sample() (telemetry.Sample, error) {
	from, to := g.engine.DrawPair()
	if from == nil || to == nil {
		return telemetry.Sample{}, nil
	}

	g.sampleFrom = grow(g.sampleFrom, from.Len())
	g.sampleTo = grow(g.sampleTo, to.Len())
	if err := from.Read(0, g.sampleFrom); err != nil {
		return telemetry.Sample{}, fmt.Errorf("reading %s: %w", from.Label(), err)
	}
	if err := to.Read(0, g.sampleTo); err != nil {
		return telemetry.Sample{}, fmt.Errorf("reading %s: %w", to.Label(), err)
	}
	return telemetry.SampleBuffers(g.sampleFrom, g.sampleTo, g.engine.State().NumParticles()), nil
}

// saveSnapshot writes the live positions of the current generation.
func (g *Game) saveSnapshot() {
	st := g.engine.State()
	if !st.Initialized() {
		slog.Warn("no particles to snapshot")
		return
	}

	positions := make([]float32, st.Source().Len())
	if err := st.Source().Read(0, positions); err != nil {
		slog.Error("failed to read positions", "error", err)
		return
	}

	b := g.camera.Bounds()
	snapshot := &telemetry.Snapshot{
		Version:      telemetry.SnapshotVersion,
		RunID:        g.runID,
		Tick:         int64(g.Tick()),
		Zoom:         g.camera.Zoom,
		Bounds:       [4]float64(b),
		NumParticles: st.NumParticles(),
		MaxAge:       st.MaxAge(),
		Particles:    telemetry.CollectParticles(positions, st.NumParticles()),
	}

	path, err := telemetry.SaveSnapshot(snapshot, g.snapshotDirectory())
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "particles", len(snapshot.Particles))
}

// snapshotDirectory prefers the explicit snapshot dir, then the output dir.
func (g *Game) snapshotDirectory() string {
	if g.snapshotDir != "" {
		return g.snapshotDir
	}
	if dir := g.outputManager.Dir(); dir != "" {
		return filepath.Join(dir, "snapshots")
	}
	return "snapshots"
}

func grow(s []float32, n int) []float32 {
	if cap(s) < n {
		return make([]float32, n)
	}
	return s[:n]
}
