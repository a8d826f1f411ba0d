// Package field holds the vector-field texture that particles are advected through.
//
// A field is an RGBA image covering a geographic bbox. The R and G channels
// encode the eastward (u) and northward (v) components, decoded with the
// unscale range: value = lo + (hi-lo)*channel. A texel with zero alpha has no
// data. The top row is the northern edge.
package field

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sync/atomic"

	"github.com/pthm-cable/windtrails/viewport"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("field: empty image")

var nextID atomic.Uint64

// Field is an immutable vector-field texture.
type Field struct {
	id     uint64
	width  int
	height int

	// Normalized RGBA, 4 floats per texel, row-major.
	texels []float32
}

// New builds a field from 8-bit RGBA pixels in row-major order.
func New(width, height int, pixels []color.RGBA) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyImage
	}
	if len(pixels) < width*height {
		return nil, fmt.Errorf("field: %dx%d image needs %d pixels, got %d", width, height, width*height, len(pixels))
	}

	texels := make([]float32, width*height*4)
	for i := 0; i < width*height; i++ {
		c := pixels[i]
		texels[i*4] = float32(c.R) / 255.0
		texels[i*4+1] = float32(c.G) / 255.0
		texels[i*4+2] = float32(c.B) / 255.0
		texels[i*4+3] = float32(c.A) / 255.0
	}

	return &Field{
		id:     nextID.Add(1),
		width:  width,
		height: height,
		texels: texels,
	}, nil
}

// ID identifies the texture. Two fields built from the same pixels still get
// different IDs; a new ID forces the particle buffers to be rebuilt.
func (f *Field) ID() uint64 {
	if f == nil {
		return 0
	}
	return f.id
}

// Size returns the texture dimensions.
func (f *Field) Size() (width, height int) {
	return f.width, f.height
}

// Texels returns the normalized RGBA data. Callers must not modify it.
func (f *Field) Texels() []float32 {
	return f.texels
}

// Pixels re-encodes the texture as 8-bit RGBA, the inverse of New.
func (f *Field) Pixels() []color.RGBA {
	out := make([]color.RGBA, f.width*f.height)
	for i := range out {
		t := f.texels[i*4 : i*4+4]
		out[i] = color.RGBA{R: toByte(t[0]), G: toByte(t[1]), B: toByte(t[2]), A: toByte(t[3])}
	}
	return out
}

func toByte(c float32) uint8 {
	return uint8(math.Round(float64(c) * 255))
}

// Decode maps a normalized channel value through the unscale range.
// A zero range leaves the value as is.
func Decode(c float64, unscale [2]float64) float64 {
	if unscale[0] == 0 && unscale[1] == 0 {
		return c
	}
	return unscale[0] + (unscale[1]-unscale[0])*c
}

// Sample returns the bilinearly interpolated vector at (lng, lat).
// ok is false outside bounds or where any contributing texel has no data.
func (f *Field) Sample(lng, lat float64, bounds viewport.Bounds, unscale [2]float64) (u, v float64, ok bool) {
	if !bounds.Contains(lng, lat) {
		return 0, 0, false
	}

	// Longitude in the bounds' own frame, [west, west+360)
	span := bounds.East() - bounds.West()
	offset := math.Mod(lng-bounds.West(), 360)
	if offset < 0 {
		offset += 360
	}
	if offset >= 360 {
		offset = 0
	}
	lng = bounds.West() + offset
	wrapX := span >= 360

	fx := (lng-bounds.West())/span*float64(f.width) - 0.5
	fy := (bounds.North()-lat)/(bounds.North()-bounds.South())*float64(f.height) - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	fracX := fx - float64(x0)
	fracY := fy - float64(y0)

	x1 := x0 + 1
	y1 := y0 + 1
	if wrapX {
		x0 = wrapInt(x0, f.width)
		x1 = wrapInt(x1, f.width)
	} else {
		x0 = clampInt(x0, 0, f.width-1)
		x1 = clampInt(x1, 0, f.width-1)
	}
	y0 = clampInt(y0, 0, f.height-1)
	y1 = clampInt(y1, 0, f.height-1)

	t00 := f.texel(x0, y0)
	t10 := f.texel(x1, y0)
	t01 := f.texel(x0, y1)
	t11 := f.texel(x1, y1)

	if t00[3] == 0 || t10[3] == 0 || t01[3] == 0 || t11[3] == 0 {
		return 0, 0, false
	}

	r := bilinear(t00[0], t10[0], t01[0], t11[0], fracX, fracY)
	g := bilinear(t00[1], t10[1], t01[1], t11[1], fracX, fracY)

	return Decode(r, unscale), Decode(g, unscale), true
}

func (f *Field) texel(x, y int) []float32 {
	i := (y*f.width + x) * 4
	return f.texels[i : i+4]
}

func bilinear(v00, v10, v01, v11 float32, fx, fy float64) float64 {
	top := float64(v00) + (float64(v10)-float64(v00))*fx
	bottom := float64(v01) + (float64(v11)-float64(v01))*fx
	return top + (bottom-top)*fy
}

// wrapInt maps a column index onto [0, n) for fields spanning the globe.
func wrapInt(x, n int) int {
	x %= n
	if x < 0 {
		x += n
	}
	return x
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
