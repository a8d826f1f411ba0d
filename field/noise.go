package field

import (
	"image/color"
	"math"

	"github.com/ojrac/opensimplex-go"
)

// NoiseConfig describes a procedural wind field.
type NoiseConfig struct {
	Seed     int64
	Width    int
	Height   int
	Scale    float64    // Base noise frequency around the globe
	Octaves  int        // FBM octaves
	MaxSpeed float64    // Peak vector magnitude before encoding
	Unscale  [2]float64 // Encoding range; must match the simulation's field unscale
}

// NewNoise generates a divergence-free field from the curl of a simplex
// stream function. Noise is sampled on a cylinder so the field wraps
// seamlessly at the antimeridian.
func NewNoise(cfg NoiseConfig) (*Field, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrEmptyImage
	}
	if cfg.Octaves < 1 {
		cfg.Octaves = 1
	}
	if cfg.MaxSpeed <= 0 {
		cfg.MaxSpeed = 1
	}
	if cfg.Unscale[0] == cfg.Unscale[1] {
		cfg.Unscale = [2]float64{-cfg.MaxSpeed, cfg.MaxSpeed}
	}

	noise := opensimplex.New(cfg.Seed)
	radius := cfg.Scale / (2 * math.Pi)

	// Stream function on a (width x height+2) grid, one guard row each side
	w, h := cfg.Width, cfg.Height
	psi := make([]float64, w*(h+2))
	for y := 0; y < h+2; y++ {
		lat := 90 - (float64(y)-0.5)/float64(h)*180
		ny := lat / 180 * cfg.Scale
		for x := 0; x < w; x++ {
			theta := (float64(x) + 0.5) / float64(w) * 2 * math.Pi
			psi[y*w+x] = octaveNoise(noise, math.Cos(theta)*radius, math.Sin(theta)*radius, ny, cfg.Octaves)
		}
	}

	// Central differences; normalize by the largest magnitude so MaxSpeed is the peak
	us := make([]float64, w*h)
	vs := make([]float64, w*h)
	maxMag := 0.0
	for y := 0; y < h; y++ {
		row := y + 1
		for x := 0; x < w; x++ {
			left := (x - 1 + w) % w
			right := (x + 1) % w
			dPsiDx := (psi[row*w+right] - psi[row*w+left]) / 2
			dPsiDy := (psi[(row-1)*w+x] - psi[(row+1)*w+x]) / 2

			u := dPsiDy
			v := -dPsiDx
			us[y*w+x] = u
			vs[y*w+x] = v
			if m := math.Hypot(u, v); m > maxMag {
				maxMag = m
			}
		}
	}
	scale := 0.0
	if maxMag > 0 {
		scale = cfg.MaxSpeed / maxMag
	}

	pixels := make([]color.RGBA, w*h)
	for i := range pixels {
		pixels[i] = color.RGBA{
			R: encode(us[i]*scale, cfg.Unscale),
			G: encode(vs[i]*scale, cfg.Unscale),
			B: 0,
			A: 255,
		}
	}

	return New(w, h, pixels)
}

// octaveNoise layers simplex noise at doubling frequencies.
func octaveNoise(noise opensimplex.Noise, x, y, z float64, octaves int) float64 {
	total := 0.0
	amplitude := 1.0
	frequency := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval3(x*frequency, y*frequency, z*frequency) * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		frequency *= 2
	}

	return total / maxVal
}

// encode is the inverse of Decode, quantized to 8 bits.
func encode(value float64, unscale [2]float64) uint8 {
	c := (value - unscale[0]) / (unscale[1] - unscale[0])
	c = math.Max(0, math.Min(1, c))
	return uint8(math.Round(c * 255))
}
