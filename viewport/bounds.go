// Package viewport provides the geographic bounds math and per-tick viewport
// parameters that feed particle advection.
package viewport

import "math"

// Bounds is a geographic bounding box: west, south, east, north in degrees.
type Bounds [4]float64

// World is the whole-globe bounds.
var World = Bounds{-180, -90, 180, 90}

// West returns the western longitude.
func (b Bounds) West() float64 { return b[0] }

// South returns the southern latitude.
func (b Bounds) South() float64 { return b[1] }

// East returns the eastern longitude.
func (b Bounds) East() float64 { return b[2] }

// North returns the northern latitude.
func (b Bounds) North() float64 { return b[3] }

// Contains reports whether (lng, lat) lies inside b. Longitudes are compared
// after shifting lng into [west, west+360) so boxes crossing the antimeridian
// (east > 180) work without special cases.
func (b Bounds) Contains(lng, lat float64) bool {
	if lat < b[1] || lat > b[3] {
		return false
	}
	if b[2]-b[0] >= 360 {
		return true
	}
	lng = b[0] + mod(lng-b[0], 360)
	return lng <= b[2]
}

// WrapLongitude maps lng into [-180, 180).
func WrapLongitude(lng float64) float64 {
	return mod(lng+180, 360) - 180
}

// WrapBounds normalizes a bbox to the canonical longitude range.
//
// For spans under 360 degrees west is wrapped into [-180, 180) and east is
// wrapped the same way, then pushed past west by 360 when needed so the box
// may extend beyond 180 across the antimeridian. Spans of 360 or more become
// the whole globe. Latitudes are clamped, never wrapped; south > north is
// passed through untouched.
func WrapBounds(b Bounds) Bounds {
	west, south, east, north := b[0], b[1], b[2], b[3]

	if east-west < 360 {
		west = WrapLongitude(west)
		east = WrapLongitude(east)
		if east < west {
			east += 360
		}
	} else {
		west = -180
		east = 180
	}

	south = math.Max(south, -90)
	north = math.Min(north, 90)

	return Bounds{west, south, east, north}
}

// mod computes the positive modulo (math.Mod keeps the dividend's sign).
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
