package game

import (
	"log/slog"

	"github.com/dustin/go-humanize"
)

// logStartup records the run configuration.
func (g *Game) logStartup() {
	st := g.engine.State()
	w, h := g.field.Size()
	slog.Info("visualizer ready",
		"run_id", g.runID,
		"headless", g.headless,
		"backend", g.device.Name(),
		"field", humanize.Comma(int64(w))+"x"+humanize.Comma(int64(h)),
		"particles", humanize.Comma(int64(g.settings.NumParticles)),
		"max_age", g.settings.MaxAge,
		"tick_interval", g.engine.Scheduler().Interval(),
		"allocated", humanize.IBytes(uint64(st.AllocatedBytes())),
		"output_dir", g.outputManager.Dir(),
	)
}
