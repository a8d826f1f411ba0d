// Package camera provides a pan/zoom map camera over a Web Mercator world.
package camera

import (
	"math"

	"github.com/pthm-cable/windtrails/viewport"
)

// TileSize is the world width in pixels at zoom 0.
const TileSize = 256

// MaxLatitude is the Web Mercator cutoff.
const MaxLatitude = 85.05112878

// Camera controls the viewport into the map.
// Longitude wraps; latitude is clamped to the Mercator range.
type Camera struct {
	// Center of the view in degrees
	Lon, Lat float64

	// Zoom level; the world is TileSize*2^Zoom pixels wide
	Zoom float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Zoom constraints
	MinZoom, MaxZoom float64

	home struct{ lon, lat, zoom float64 }
}

// New creates a camera centered on (lon, lat).
func New(viewportW, viewportH float32, lon, lat, zoom float64) *Camera {
	c := &Camera{
		Lon:       wrapLon(lon),
		Lat:       clamp(lat, -MaxLatitude, MaxLatitude),
		ViewportW: viewportW,
		ViewportH: viewportH,
		MaxZoom:   8,
	}
	c.MinZoom = c.fitZoom()
	c.SetZoom(zoom)
	c.home.lon, c.home.lat, c.home.zoom = c.Lon, c.Lat, c.Zoom
	return c
}

// fitZoom is the smallest zoom at which the world is at least as tall as
// the viewport.
func (c *Camera) fitZoom() float64 {
	return math.Max(0, math.Log2(float64(c.ViewportH)/TileSize))
}

// WorldSize is the world width (and height) in pixels at the current zoom.
func (c *Camera) WorldSize() float64 {
	return TileSize * math.Exp2(c.Zoom)
}

// LonLatToScreen converts a geographic position to screen coordinates,
// taking the shorter way around the antimeridian.
func (c *Camera) LonLatToScreen(lon, lat float64) (sx, sy float32) {
	size := c.WorldSize()
	dx := lonDelta(lon, c.Lon) / 360 * size
	dy := (mercatorY(lat) - mercatorY(c.Lat)) * size
	return c.ViewportW/2 + float32(dx), c.ViewportH/2 + float32(dy)
}

// ScreenToLonLat converts screen coordinates to a geographic position.
func (c *Camera) ScreenToLonLat(sx, sy float32) (lon, lat float64) {
	size := c.WorldSize()
	dx := float64(sx-c.ViewportW/2) / size
	dy := float64(sy-c.ViewportH/2) / size
	lon = wrapLon(c.Lon + dx*360)
	lat = latitudeAt(mercatorY(c.Lat) + dy)
	return lon, lat
}

// Bounds returns the visible area as {west, south, east, north}. West and
// east are continuous around the center and may fall outside [-180, 180];
// viewport.WrapBounds normalizes them.
func (c *Camera) Bounds() viewport.Bounds {
	size := c.WorldSize()
	halfW := float64(c.ViewportW) / 2 / size * 360
	halfH := float64(c.ViewportH) / 2 / size
	y := mercatorY(c.Lat)
	return viewport.Bounds{
		c.Lon - halfW,
		latitudeAt(y + halfH),
		c.Lon + halfW,
		latitudeAt(y - halfH),
	}
}

// View is the zoom and bbox the particle engine reads each tick.
func (c *Camera) View() viewport.Camera {
	return viewport.Camera{Zoom: c.Zoom, Bounds: c.Bounds()}
}

// Resize updates viewport dimensions and recalculates zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = c.fitZoom()
	if c.Zoom < c.MinZoom {
		c.Zoom = c.MinZoom
	}
}

// Pan moves the view by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	size := c.WorldSize()
	c.Lon = wrapLon(c.Lon + float64(dx)/size*360)
	c.Lat = latitudeAt(mercatorY(c.Lat) + float64(dy)/size)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy changes the zoom by delta levels.
func (c *Camera) ZoomBy(delta float64) {
	c.SetZoom(c.Zoom + delta)
}

// ZoomAt changes the zoom by delta levels keeping the point under (sx, sy)
// fixed on screen.
func (c *Camera) ZoomAt(sx, sy float32, delta float64) {
	lon, lat := c.ScreenToLonLat(sx, sy)
	c.ZoomBy(delta)
	px, py := c.LonLatToScreen(lon, lat)
	c.Pan(px-sx, py-sy)
}

// Reset returns the camera to its initial position and zoom.
func (c *Camera) Reset() {
	c.Lon, c.Lat = c.home.lon, c.home.lat
	c.SetZoom(c.home.zoom)
}

// mercatorY maps latitude to [0, 1], north at 0.
func mercatorY(lat float64) float64 {
	lat = clamp(lat, -MaxLatitude, MaxLatitude) * math.Pi / 180
	return (1 - math.Asinh(math.Tan(lat))/math.Pi) / 2
}

// latitudeAt inverts mercatorY, clamping to the map edge.
func latitudeAt(y float64) float64 {
	y = clamp(y, 0, 1)
	return math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
}

// lonDelta is the shortest signed angle from 'from' to 'to'.
func lonDelta(to, from float64) float64 {
	d := to - from
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

func wrapLon(lon float64) float64 {
	return viewport.WrapLongitude(lon)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
