package gpu

import (
	"fmt"
	"math"
)

// Keep advected latitudes away from the poles where cos(lat) collapses.
const maxLatitude = 85.0

// HostKernel is the CPU implementation of the advection kernel. The GL
// compute shader in shaders/advect.comp follows the same rules.
type HostKernel struct{}

// NewHostKernel creates the CPU kernel.
func NewHostKernel() *HostKernel {
	return &HostKernel{}
}

// Name implements Kernel.
func (k *HostKernel) Name() string { return "host" }

// Release implements Kernel.
func (k *HostKernel) Release() {}

// Advect implements Kernel. Both buffers must be host buffers.
func (k *HostKernel) Advect(src, dst Buffer, p KernelParams) error {
	in, ok := src.(*HostBuffer)
	if !ok {
		return fmt.Errorf("gpu: host kernel cannot read %T", src)
	}
	out, ok := dst.(*HostBuffer)
	if !ok {
		return fmt.Errorf("gpu: host kernel cannot write %T", dst)
	}
	n := p.NumParticles * PositionStride
	if in.data == nil || out.data == nil {
		return ErrReleased
	}
	if err := checkRange(in, 0, n); err != nil {
		return err
	}
	if err := checkRange(out, 0, n); err != nil {
		return err
	}

	for i := 0; i < p.NumParticles; i++ {
		j := i * PositionStride
		lng, lat, alive := advectParticle(i, float64(in.data[j]), float64(in.data[j+1]), float64(in.data[j+2]), &p)
		if !alive {
			out.data[j], out.data[j+1], out.data[j+2] = 0, 0, 0
			continue
		}
		out.data[j] = float32(lng)
		out.data[j+1] = float32(lat)
		out.data[j+2] = 0
	}
	return nil
}

// advectParticle applies the kernel rules to one particle. alive=false means
// the output is the sentinel.
func advectParticle(i int, x, y, z float64, p *KernelParams) (lng, lat float64, alive bool) {
	index := float64(i)
	vp := p.ViewportBounds

	if x == 0 && y == 0 && z == 0 {
		// Respawn uniformly inside the viewport; out-of-data spawns are
		// dropped next tick and retried.
		lng = vp.West() + hash(index, p.Seed, 0)*(vp.East()-vp.West())
		lat = vp.South() + hash(index, p.Seed, 1)*(vp.North()-vp.South())
		lat = math.Max(-maxLatitude, math.Min(maxLatitude, lat))
		return lng, lat, true
	}

	// Thin the population when zooming out so density stays constant on screen
	if p.ZoomChangeFactor > 1 && math.Mod(index, p.ZoomChangeFactor) >= 1 {
		return 0, 0, false
	}

	// Staggered recycling: one particle in maxAge+2 is dropped each tick
	period := float64(p.MaxAge + 2)
	if math.Abs(mod(index, period)-mod(p.Time, period)) < 1 {
		return 0, 0, false
	}

	if !p.Bounds.Contains(x, y) || !vp.Contains(x, y) {
		return 0, 0, false
	}

	if p.Field == nil {
		return 0, 0, false
	}
	u, v, ok := p.Field.Sample(x, y, p.Bounds, p.FieldUnscale)
	if !ok {
		return 0, 0, false
	}

	distortion := math.Max(math.Cos(y*math.Pi/180), 0.05)
	lng = x + u*p.EffectiveSpeed/distortion
	lat = y + v*p.EffectiveSpeed
	if lat > maxLatitude || lat < -maxLatitude {
		return 0, 0, false
	}

	// Stay in the viewport's longitude frame so segments don't jump a full turn
	lng = vp.West() + mod(lng-vp.West(), 360)

	return lng, lat, true
}

// hash is a deterministic pseudo-random value in [0, 1) from an index, the
// tick seed and a channel selector.
func hash(index, seed, channel float64) float64 {
	v := math.Sin(index*12.9898+seed*78.233+channel*37.719) * 43758.5453
	return v - math.Floor(v)
}

func mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	// A tiny negative remainder rounds up to m
	if r >= m {
		return 0
	}
	return r
}

// Compile-time checks.
var (
	_ Kernel = (*HostKernel)(nil)
	_ Device = (*HostDevice)(nil)
	_ Buffer = (*HostBuffer)(nil)
)
