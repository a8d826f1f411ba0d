package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windtrails/telemetry"
	"github.com/pthm-cable/windtrails/ui"
)

var (
	backgroundColor = rl.Color{R: 6, G: 10, B: 18, A: 255}
	graticuleColor  = rl.Color{R: 40, G: 52, B: 70, A: 255}
)

const controlsLegend = "Drag/arrows: pan | Wheel/+/-: zoom | A: animate | N: step | C: clear | S: snapshot | R: reset view | Tab: panel | I: stats"

// Draw renders the trails and the UI. It closes the perf tick opened by
// Update.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(backgroundColor)

	g.drawTrails()
	g.drawUI()

	rl.EndDrawing()

	g.perf.EndTick()
	g.perf.RecordFrame()
}

// drawTrails reads the buffers back when a tick or rebuild changed them and
// draws one segment per live slot.
func (g *Game) drawTrails() {
	if g.engine.NeedsRedraw() {
		g.perf.StartPhase(telemetry.PhaseReadback)
		from, to := g.engine.DrawPair()
		if err := g.trails.Readback(from, to, g.engine.State().Colors()); err != nil {
			slog.Error("trail readback failed", "error", err)
		}
	}

	g.perf.StartPhase(telemetry.PhaseDraw)
	g.background.Draw(g.camera, g.screenWidth, g.screenHeight)
	segments := g.trails.Build(g.camera, g.screenWidth, g.screenHeight)
	g.trails.Draw(segments, g.engine.State().Width())
}

// drawUI draws the panels and applies any edits made through them.
func (g *Game) drawUI() {
	w := int32(g.screenWidth)
	h := int32(g.screenHeight)

	cursor := rl.GetMousePosition()
	lon, lat := g.camera.ScreenToLonLat(cursor.X, cursor.Y)
	g.hud.Draw(ui.HUDData{
		Title:     g.cfg.Screen.Title,
		Tick:      g.Tick(),
		FPS:       rl.GetFPS(),
		Animate:   g.settings.Animate,
		Backend:   g.device.Name(),
		Zoom:      g.camera.Zoom,
		CenterLon: g.camera.Lon,
		CenterLat: g.camera.Lat,
		CursorLon: lon,
		CursorLat: lat,
	}, w)
	g.hud.DrawControls(h, controlsLegend)

	settings, act := g.controls.Draw(g.settings)
	g.applySettings(settings)
	if act.Clear {
		g.clear()
	}
	if act.Snapshot {
		g.saveSnapshot()
	}
	if act.Reset {
		g.camera.Reset()
	}

	if g.showStats {
		y := int32(10)
		if g.controls.IsVisible() {
			y += g.controls.Height() + 10
		}
		g.statsPanel.SetPosition(10, y)
		g.statsPanel.Draw(g.lastStats)

		g.perfPanel.SetPosition(w-300, 120)
		g.perfPanel.Draw(g.perf.Stats())
	}
}
