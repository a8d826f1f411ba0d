// Package particles runs the age-bucketed trail simulation: buffer layout,
// the per-tick advect/age/swap protocol and its scheduling.
package particles

import (
	"image/color"

	"github.com/pthm-cable/windtrails/field"
	"github.com/pthm-cable/windtrails/viewport"
)

// Params configures the simulation. NumParticles, MaxAge, LineWidth and the
// field identity are fixed for the lifetime of a State; changing any of them
// forces a rebuild. The rest is read on every tick.
type Params struct {
	NumParticles int
	MaxAge       int
	SpeedFactor  float64
	Color        color.RGBA
	LineWidth    float64
	Bounds       viewport.Bounds
	FieldUnscale [2]float64
	Field        *field.Field
	Animate      bool
}

// Valid reports whether a simulation can exist for these params.
func (p Params) Valid() bool {
	return p.NumParticles > 0 && p.MaxAge > 0 && p.LineWidth > 0 && p.Field != nil
}

// NumInstances is the total slot count across all age cohorts.
func (p Params) NumInstances() int {
	return p.NumParticles * p.MaxAge
}

// NumAgedInstances is the slot count of every cohort but the youngest.
func (p Params) NumAgedInstances() int {
	return p.NumParticles * (p.MaxAge - 1)
}

// rebuildReason returns why next needs fresh buffers, or "" when the
// current ones can be kept.
func rebuildReason(prev, next Params) string {
	switch {
	case prev.Field.ID() != next.Field.ID():
		return "field"
	case prev.NumParticles != next.NumParticles:
		return "num_particles"
	case prev.MaxAge != next.MaxAge:
		return "max_age"
	case prev.LineWidth != next.LineWidth:
		return "line_width"
	}
	return ""
}
