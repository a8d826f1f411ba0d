package particles

import (
	"fmt"

	"github.com/pthm-cable/windtrails/gpu"
	"github.com/pthm-cable/windtrails/telemetry"
	"github.com/pthm-cable/windtrails/viewport"
)

// Step advances the simulation one tick.
//
// The kernel advects cohort 0 from source into target, then cohorts
// 0..MaxAge-2 of source are copied one cohort older into target, and the
// roles swap. Uninitialized states and repeated times are no-ops.
func Step(s *State, k gpu.Kernel, p Params, cam viewport.Camera, time, seed float64) (bool, error) {
	return step(s, k, p, cam, time, seed, nil)
}

func step(s *State, k gpu.Kernel, p Params, cam viewport.Camera, time, seed float64, perf *telemetry.PerfCollector) (bool, error) {
	if !s.Initialized() || time == s.previousTime {
		return false, nil
	}

	vp := viewport.Compute(cam, s.previousZoom, p.SpeedFactor)
	src, dst := s.Source(), s.Target()

	perf.StartPhase(telemetry.PhaseKernel)
	err := k.Advect(src, dst, gpu.KernelParams{
		NumParticles:     s.numParticles,
		MaxAge:           s.maxAge,
		EffectiveSpeed:   vp.EffectiveSpeed,
		Time:             time,
		Seed:             seed,
		ViewportBounds:   vp.Bounds,
		ZoomChangeFactor: vp.ZoomChangeFactor,
		FieldUnscale:     p.FieldUnscale,
		Bounds:           p.Bounds,
		Field:            p.Field,
	})
	if err != nil {
		return false, fmt.Errorf("advect: %w", err)
	}

	if aged := s.NumAgedInstances(); aged > 0 {
		perf.StartPhase(telemetry.PhaseAgeShift)
		err := dst.CopyFrom(src, 0, s.numParticles*gpu.PositionStride, aged*gpu.PositionStride)
		if err != nil {
			return false, fmt.Errorf("age shift: %w", err)
		}
	}

	s.swap()
	s.previousZoom = cam.Zoom
	s.previousTime = time
	return true, nil
}
