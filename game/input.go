package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Wheel notches to zoom levels.
const wheelZoomStep = 0.25

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeyTab) {
		g.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyI) {
		g.showStats = !g.showStats
	}

	if rl.IsKeyPressed(rl.KeyA) {
		s := g.settings
		s.Animate = !s.Animate
		g.applySettings(s)
	}
	if rl.IsKeyPressed(rl.KeyC) {
		g.clear()
	}
	if rl.IsKeyPressed(rl.KeyN) && !g.settings.Animate {
		g.step()
	}
	if rl.IsKeyPressed(rl.KeyS) {
		g.saveSnapshot()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		g.camera.Reset()
	}

	g.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h
	g.camera.Resize(w, h)
}

// handleCameraInput processes camera pan/zoom controls.
func (g *Game) handleCameraInput() {
	mouse := rl.GetMousePosition()
	overPanel := g.controls.Contains(mouse.X, mouse.Y)

	// Arrow keys pan a fixed number of pixels per frame
	const panSpeed = 8
	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 && !overPanel {
		g.camera.ZoomAt(mouse.X, mouse.Y, float64(wheel)*wheelZoomStep)
	}
	if rl.IsKeyPressed(rl.KeyEqual) {
		g.camera.ZoomBy(wheelZoomStep * 2)
	}
	if rl.IsKeyPressed(rl.KeyMinus) {
		g.camera.ZoomBy(-wheelZoomStep * 2)
	}

	// Drag to pan; drags starting on the panel belong to its widgets
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		g.dragging = !overPanel
	}
	if rl.IsMouseButtonReleased(rl.MouseButtonLeft) {
		g.dragging = false
	}
	if g.dragging {
		d := rl.GetMouseDelta()
		if d.X != 0 || d.Y != 0 {
			g.camera.Pan(-d.X, -d.Y)
		}
	}
}

// clear drops every trail without reallocating.
func (g *Game) clear() {
	if err := g.engine.Clear(); err != nil {
		slog.Error("failed to clear trails", "error", err)
	}
}
