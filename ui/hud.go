package ui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windtrails/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title        string
	Tick         int
	FPS          int32
	Animate      bool
	Backend      string
	Zoom         float64
	CenterLon    float64
	CenterLat    float64
	CursorLon    float64
	CursorLat    float64
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD in the top right corner of a screen width wide.
func (h *HUD) Draw(data HUDData, width int32) {
	x := width - 300

	rl.DrawText(data.Title, x, 10, 20, rl.White)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | FPS: %d | %s", data.Tick, data.FPS, data.Backend),
		x, 35, 14, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("z%.2f  %.2f, %.2f", data.Zoom, data.CenterLon, data.CenterLat),
		x, 53, 14, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("cursor %.2f, %.2f", data.CursorLon, data.CursorLat),
		x, 71, 14, rl.Gray,
	)

	if !data.Animate {
		rl.DrawText("PAUSED", x, 89, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders tick phase timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Frame", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s  FPS: %.0f", stats.AvgTickDuration.Round(time.Microsecond), stats.FPS), x, y, 14, rl.Yellow)
	y += 16

	for _, name := range telemetry.Phases() {
		avg := stats.PhaseAvg[name]
		pct := stats.PhasePct[name]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}

// StatsPanel renders the last telemetry window.
type StatsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	sections []SectionDescriptor
}

// NewStatsPanel creates a stats panel.
func NewStatsPanel(x, y, width int32) *StatsPanel {
	return &StatsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		sections: statsSections(),
	}
}

// SetPosition updates the panel position.
func (s *StatsPanel) SetPosition(x, y int32) {
	s.x = x
	s.y = y
}

// Draw renders the panel.
func (s *StatsPanel) Draw(stats telemetry.WindowStats) {
	r := s.renderer
	padding := r.Theme.Padding

	height := padding * 2
	for _, sd := range s.sections {
		height += r.SectionHeight(sd, stats)
	}
	r.DrawPanel(s.x, s.y, s.width, height)

	y := s.y + padding
	for _, sd := range s.sections {
		y = r.DrawSection(s.x+padding, y, sd, stats, s.width-padding*2)
	}
}

func windowStats(data any) telemetry.WindowStats {
	ws, _ := data.(telemetry.WindowStats)
	return ws
}

func statsSections() []SectionDescriptor {
	return []SectionDescriptor{
		{
			Title: "Trails",
			Fields: []FieldDescriptor{
				{Label: "Active", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(windowStats(d).ActiveParticles) }},
				{Label: "Segments", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(windowStats(d).Segments) }},
				{Label: "Fill", Widget: WidgetBar,
					Getter: func(d any) float32 { return float32(windowStats(d).Fill) }},
			},
		},
		{
			Title: "Step (deg)",
			Fields: []FieldDescriptor{
				{Label: "Mean", Widget: WidgetText, Format: "%.4f",
					Getter: func(d any) float32 { return float32(windowStats(d).StepMean) }},
				{Label: "p10/p50/p90", Widget: WidgetText,
					TextGetter: func(d any) string {
						ws := windowStats(d)
						return fmt.Sprintf("%.3f/%.3f/%.3f", ws.StepP10, ws.StepP50, ws.StepP90)
					}},
			},
		},
		{
			Title: "Buffers",
			Fields: []FieldDescriptor{
				{Label: "Allocated", Widget: WidgetText,
					TextGetter: func(d any) string { return humanize.IBytes(uint64(windowStats(d).AllocatedBytes)) }},
				{Label: "Rebuilds", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(windowStats(d).Rebuilds) }},
				{Label: "Clears", Widget: WidgetText, Format: "%.0f",
					Getter: func(d any) float32 { return float32(windowStats(d).Clears) }},
			},
		},
	}
}
