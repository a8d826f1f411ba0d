package ui

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Slider ranges.
const (
	MinParticlesLog2 = 6  // 64
	MaxParticlesLog2 = 18 // 262144
	MinMaxAge        = 1
	MaxMaxAge        = 100
	MinSpeedFactor   = 1.0
	MaxSpeedFactor   = 100.0
	MinLineWidth     = 0.5
	MaxLineWidth     = 6.0
)

// Settings are the simulation parameters exposed to the user.
type Settings struct {
	NumParticles int
	MaxAge       int
	SpeedFactor  float64
	LineWidth    float64
	Animate      bool
	Color        rl.Color // Hue is edited; saturation, value and alpha are kept
}

// Actions are one-shot requests from the panel buttons.
type Actions struct {
	Clear    bool
	Snapshot bool
	Reset    bool
}

// ControlsPanel renders the parameter sliders on the left of the screen.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Height is the panel's height in pixels.
func (c *ControlsPanel) Height() int32 {
	return 5*38 + 2*28 + 24 + c.renderer.Theme.Padding*2
}

// Contains reports whether a screen point is over the visible panel.
func (c *ControlsPanel) Contains(x, y float32) bool {
	if !c.visible {
		return false
	}
	return x >= float32(c.x) && x < float32(c.x+c.width) &&
		y >= float32(c.y) && y < float32(c.y+c.Height())
}

// Draw renders the panel and returns the settings after user edits. Values
// the user did not touch are returned unchanged.
func (c *ControlsPanel) Draw(s Settings) (Settings, Actions) {
	var act Actions
	if !c.visible {
		return s, act
	}

	r := c.renderer
	padding := r.Theme.Padding
	r.DrawPanel(c.x, c.y, c.width, c.Height())

	x := float32(c.x + padding)
	y := float32(c.y + padding)
	sliderW := float32(c.width-padding*2) - 50

	rl.DrawText("Particles", int32(x), int32(y), 16, rl.White)
	rl.DrawRectangle(int32(x+sliderW+8), int32(y+2), 12, 12, s.Color)
	y += 24

	slider := func(label, value string, v, lo, hi float32) float32 {
		rl.DrawText(label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		rect := rl.Rectangle{X: x, Y: y + 14, Width: sliderW, Height: 16}
		out := gui.SliderBar(rect, "", "", v, lo, hi)
		rl.DrawText(value, int32(x+sliderW+8), int32(y+15), r.Theme.FontSize, r.Theme.ValueColor)
		y += 38
		return out
	}

	exp := float32(math.Log2(float64(max(s.NumParticles, 1))))
	if v := slider("Count", fmt.Sprintf("%d", s.NumParticles), exp, MinParticlesLog2, MaxParticlesLog2); v != exp {
		s.NumParticles = ParticlesFromSlider(v)
	}

	age := float32(s.MaxAge)
	if v := slider("Trail length", fmt.Sprintf("%d", s.MaxAge), age, MinMaxAge, MaxMaxAge); v != age {
		s.MaxAge = MaxAgeFromSlider(v)
	}

	speed := float32(s.SpeedFactor)
	if v := slider("Speed", fmt.Sprintf("%.0f", s.SpeedFactor), speed, MinSpeedFactor, MaxSpeedFactor); v != speed {
		s.SpeedFactor = math.Round(float64(v))
	}

	width := float32(s.LineWidth)
	if v := slider("Line width", fmt.Sprintf("%.1f", s.LineWidth), width, MinLineWidth, MaxLineWidth); v != width {
		s.LineWidth = LineWidthFromSlider(v)
	}

	hue := ColorHue(s.Color)
	if v := slider("Hue", fmt.Sprintf("%.0f", hue), hue, 0, 360); v != hue {
		s.Color = ColorWithHue(s.Color, v)
	}

	s.Animate = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 14, Height: 14}, "Animate [A]", s.Animate)
	y += 28

	btnW := (float32(c.width-padding*2) - 16) / 3
	act.Clear = gui.Button(rl.Rectangle{X: x, Y: y, Width: btnW, Height: 22}, "Clear")
	act.Snapshot = gui.Button(rl.Rectangle{X: x + btnW + 8, Y: y, Width: btnW, Height: 22}, "Snapshot")
	act.Reset = gui.Button(rl.Rectangle{X: x + 2*(btnW+8), Y: y, Width: btnW, Height: 22}, "Reset view")

	return s, act
}

// ParticlesFromSlider maps a log2 slider position to a power-of-two count.
func ParticlesFromSlider(v float32) int {
	e := int(math.Round(float64(v)))
	e = max(MinParticlesLog2, min(MaxParticlesLog2, e))
	return 1 << e
}

// MaxAgeFromSlider rounds a slider position to a cohort count.
func MaxAgeFromSlider(v float32) int {
	a := int(math.Round(float64(v)))
	return max(MinMaxAge, min(MaxMaxAge, a))
}

// ColorHue returns the hue of c in degrees.
func ColorHue(c rl.Color) float32 {
	return rl.ColorToHSV(c).X
}

// ColorWithHue replaces the hue of c, keeping saturation, value and alpha.
func ColorWithHue(c rl.Color, hue float32) rl.Color {
	hsv := rl.ColorToHSV(c)
	out := rl.ColorFromHSV(float32(math.Round(float64(hue))), hsv.Y, hsv.Z)
	out.A = c.A
	return out
}

// LineWidthFromSlider snaps a slider position to half pixels.
func LineWidthFromSlider(v float32) float64 {
	w := math.Round(float64(v)*2) / 2
	return math.Max(MinLineWidth, math.Min(MaxLineWidth, w))
}
