package renderer

import rl "github.com/gen2brain/raylib-go/raylib"

// BackgroundRenderer draws a latitude/longitude graticule behind the trails.
type BackgroundRenderer struct {
	step  float64 // Degrees between grid lines
	color rl.Color
	xs    []float32
	ys    []float32
}

// NewBackgroundRenderer creates a graticule with lines every step degrees.
func NewBackgroundRenderer(step float64, color rl.Color) *BackgroundRenderer {
	if step <= 0 {
		step = 30
	}
	return &BackgroundRenderer{step: step, color: color}
}

// Lines returns the on-screen x of each meridian and y of each parallel.
// Parallels stop at the Mercator limit.
func (b *BackgroundRenderer) Lines(proj Projector, screenW, screenH float32) (xs, ys []float32) {
	b.xs, b.ys = b.xs[:0], b.ys[:0]
	for lon := -180.0; lon < 180; lon += b.step {
		x, _ := proj.LonLatToScreen(lon, 0)
		if x >= 0 && x <= screenW {
			b.xs = append(b.xs, x)
		}
	}
	for lat := -b.step * float64(int(80/b.step)); lat <= 80; lat += b.step {
		_, y := proj.LonLatToScreen(0, lat)
		if y >= 0 && y <= screenH {
			b.ys = append(b.ys, y)
		}
	}
	return b.xs, b.ys
}

// Draw renders the graticule.
func (b *BackgroundRenderer) Draw(proj Projector, screenW, screenH float32) {
	xs, ys := b.Lines(proj, screenW, screenH)
	for _, x := range xs {
		rl.DrawLineV(rl.Vector2{X: x, Y: 0}, rl.Vector2{X: x, Y: screenH}, b.color)
	}
	for _, y := range ys {
		rl.DrawLineV(rl.Vector2{X: 0, Y: y}, rl.Vector2{X: screenW, Y: y}, b.color)
	}
}
