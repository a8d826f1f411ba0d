// Package renderer draws the particle trails.
package renderer

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windtrails/gpu"
)

// Projector maps geographic positions to the screen.
type Projector interface {
	LonLatToScreen(lon, lat float64) (sx, sy float32)
}

// Segment is one trail piece in screen space.
type Segment struct {
	From, To rl.Vector2
	Color    rl.Color
}

// TrailRenderer reads the particle buffers back each frame and draws one
// line per slot from the previous generation to the current one.
type TrailRenderer struct {
	from, to, colors []float32
	segments         []Segment
}

// NewTrailRenderer creates a trail renderer.
func NewTrailRenderer() *TrailRenderer {
	return &TrailRenderer{}
}

// Readback copies the pair buffers and colors to host memory.
func (r *TrailRenderer) Readback(from, to, colors gpu.Buffer) error {
	if from == nil || to == nil || colors == nil {
		r.from, r.to, r.colors = r.from[:0], r.to[:0], r.colors[:0]
		return nil
	}
	if from.Len() != to.Len() || colors.Len()/gpu.ColorStride != to.Len()/gpu.PositionStride {
		return fmt.Errorf("renderer: mismatched buffers %d/%d/%d", from.Len(), to.Len(), colors.Len())
	}

	r.from = grow(r.from, from.Len())
	r.to = grow(r.to, to.Len())
	r.colors = grow(r.colors, colors.Len())
	if err := from.Read(0, r.from); err != nil {
		return fmt.Errorf("reading %s: %w", from.Label(), err)
	}
	if err := to.Read(0, r.to); err != nil {
		return fmt.Errorf("reading %s: %w", to.Label(), err)
	}
	if err := colors.Read(0, r.colors); err != nil {
		return fmt.Errorf("reading colors: %w", err)
	}
	return nil
}

// Build projects the read-back slots into screen segments. Slots with a
// sentinel at either end, a transparent color, a jump across the
// antimeridian or both ends off screen are skipped.
func (r *TrailRenderer) Build(proj Projector, screenW, screenH float32) []Segment {
	r.segments = r.segments[:0]
	n := len(r.to) / gpu.PositionStride

	for i := 0; i < n; i++ {
		j := i * gpu.PositionStride
		if gpu.IsSentinel(r.from[j], r.from[j+1], r.from[j+2]) ||
			gpu.IsSentinel(r.to[j], r.to[j+1], r.to[j+2]) {
			continue
		}
		if math.Abs(float64(r.to[j]-r.from[j])) > 180 {
			continue
		}

		c := r.colors[i*gpu.ColorStride : i*gpu.ColorStride+gpu.ColorStride]
		alpha := toByte(c[3])
		if alpha == 0 {
			continue
		}

		x0, y0 := proj.LonLatToScreen(float64(r.from[j]), float64(r.from[j+1]))
		x1, y1 := proj.LonLatToScreen(float64(r.to[j]), float64(r.to[j+1]))
		if offscreen(x0, y0, screenW, screenH) && offscreen(x1, y1, screenW, screenH) {
			continue
		}

		r.segments = append(r.segments, Segment{
			From:  rl.Vector2{X: x0, Y: y0},
			To:    rl.Vector2{X: x1, Y: y1},
			Color: rl.Color{R: toByte(c[0]), G: toByte(c[1]), B: toByte(c[2]), A: alpha},
		})
	}
	return r.segments
}

// Draw renders segments with additive blending.
func (r *TrailRenderer) Draw(segments []Segment, width float32) {
	rl.BeginBlendMode(rl.BlendAdditive)
	for i := range segments {
		s := &segments[i]
		rl.DrawLineEx(s.From, s.To, width, s.Color)
	}
	rl.EndBlendMode()
}

// Unload frees resources.
func (r *TrailRenderer) Unload() {
	r.from, r.to, r.colors, r.segments = nil, nil, nil, nil
}

func grow(s []float32, n int) []float32 {
	if cap(s) < n {
		return make([]float32, n)
	}
	return s[:n]
}

func toByte(v float32) uint8 {
	return uint8(math.Round(float64(max(0, min(1, v)) * 255)))
}

func offscreen(x, y, w, h float32) bool {
	return x < 0 || y < 0 || x > w || y > h
}
