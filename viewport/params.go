package viewport

import "math"

// Camera is the camera state read once per simulation tick.
type Camera struct {
	Zoom   float64
	Bounds Bounds
}

// Params are the per-tick scalars derived from the camera.
type Params struct {
	// ZoomChangeFactor is 2^((prevZoom-zoom)*4). Below 1 after zooming in,
	// above 1 after zooming out.
	ZoomChangeFactor float64

	// EffectiveSpeed converts the viewport-independent speed factor into a
	// per-tick ground displacement that looks constant on screen.
	EffectiveSpeed float64

	// Bounds is the wrapped visible bbox.
	Bounds Bounds
}

// Compute derives the tick parameters from the current camera, the zoom seen
// on the previous tick and the configured speed factor.
func Compute(cam Camera, prevZoom, speedFactor float64) Params {
	return Params{
		ZoomChangeFactor: ZoomChangeFactor(prevZoom, cam.Zoom),
		EffectiveSpeed:   EffectiveSpeed(speedFactor, cam.Zoom),
		Bounds:           WrapBounds(cam.Bounds),
	}
}

// ZoomChangeFactor damps apparent particle speed across a zoom change.
func ZoomChangeFactor(prevZoom, zoom float64) float64 {
	return math.Exp2((prevZoom - zoom) * 4)
}

// EffectiveSpeed scales speedFactor down by 2^(zoom+7).
func EffectiveSpeed(speedFactor, zoom float64) float64 {
	return speedFactor / math.Exp2(zoom+7)
}
