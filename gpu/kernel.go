package gpu

import (
	"github.com/pthm-cable/windtrails/field"
	"github.com/pthm-cable/windtrails/viewport"
)

// KernelParams is the per-tick parameter block handed to the advection kernel.
type KernelParams struct {
	NumParticles     int
	MaxAge           int
	EffectiveSpeed   float64
	Time             float64
	Seed             float64
	ViewportBounds   viewport.Bounds
	ZoomChangeFactor float64
	FieldUnscale     [2]float64
	Bounds           viewport.Bounds
	Field            *field.Field
}

// Kernel advances the youngest cohort of particles one tick.
//
// Advect reads the first NumParticles positions of src and writes the same
// slots of dst. Each output is either a new position or the (0,0,0)
// sentinel meaning the particle was dropped; sentinel inputs are respawned.
// Slots past NumParticles are left untouched.
type Kernel interface {
	Name() string
	Advect(src, dst Buffer, p KernelParams) error
	Release()
}
