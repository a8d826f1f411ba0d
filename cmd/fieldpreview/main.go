// Field preview tool - tune the procedural wind field with sliders and
// export it as an encoded image.
//
// Usage: go run ./cmd/fieldpreview [-out field.png]
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/windtrails/config"
	"github.com/pthm-cable/windtrails/field"
	"github.com/pthm-cable/windtrails/viewport"
)

const (
	windowWidth  = 1100
	windowHeight = 640
	previewW     = 720
	previewH     = 360
	panelX       = previewW + 30
	panelWidth   = windowWidth - panelX - 10
)

func main() {
	out := flag.String("out", "field.png", "Path for exported field images")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	defaults := cfg.Field.Noise
	params := defaults
	unscale := cfg.Field.Unscale

	rl.InitWindow(windowWidth, windowHeight, "Field Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	var f *field.Field
	var texture rl.Texture2D
	needsRegen := true

	for !rl.WindowShouldClose() {
		if needsRegen {
			next, err := generate(params, unscale)
			if err != nil {
				slog.Error("failed to generate field", "error", err)
			} else {
				f = next
				rl.UnloadTexture(texture)
				texture = speedTexture(f, unscale, params.MaxSpeed)
			}
			needsRegen = false
		}
		if f == nil {
			return
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Color{R: 6, G: 10, B: 18, A: 255})

		w, h := f.Size()
		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: float32(w), Height: float32(h)},
			rl.Rectangle{X: 10, Y: 10, Width: previewW, Height: previewH},
			rl.Vector2{},
			0,
			rl.White,
		)
		drawArrows(f, unscale, params.MaxSpeed)
		rl.DrawRectangleLines(10, 10, previewW, previewH, rl.DarkGray)

		mean, peak := speedStats(f, unscale)
		rl.DrawText(fmt.Sprintf("%dx%d  mean speed %.2f  peak %.2f", w, h, mean, peak), 15, previewH+25, 16, rl.LightGray)

		// Control panel
		y := float32(10)
		rl.DrawText("Noise Field", panelX, int32(y), 20, rl.White)
		y += 35

		slider := func(label, value string, v, lo, hi float32) float32 {
			rl.DrawText(label, panelX, int32(y), 14, rl.Gray)
			y += 18
			res := gui.SliderBar(rl.Rectangle{X: panelX, Y: y, Width: panelWidth - 80, Height: 20}, "", "", v, lo, hi)
			rl.DrawText(value, int32(panelX+panelWidth-70), int32(y+2), 16, rl.LightGray)
			y += 35
			return res
		}

		if v := slider("Scale (base frequency)", fmt.Sprintf("%.1f", params.Scale), float32(params.Scale), 0.5, 12); v != float32(params.Scale) {
			params.Scale = math.Round(float64(v)*10) / 10
			needsRegen = true
		}
		if v := slider("Octaves", fmt.Sprintf("%d", params.Octaves), float32(params.Octaves), 1, 6); int(v) != params.Octaves {
			params.Octaves = int(v)
			needsRegen = true
		}
		if v := slider("Max speed", fmt.Sprintf("%.0f", params.MaxSpeed), float32(params.MaxSpeed), 1, 60); v != float32(params.MaxSpeed) {
			params.MaxSpeed = math.Round(float64(v))
			needsRegen = true
		}
		if v := slider("Seed", fmt.Sprintf("%d", params.Seed), float32(params.Seed), 0, 99999); int64(v) != params.Seed {
			params.Seed = int64(v)
			needsRegen = true
		}
		y += 10

		if gui.Button(rl.Rectangle{X: panelX, Y: y, Width: 120, Height: 30}, "Random Seed") {
			params.Seed = int64(rl.GetRandomValue(0, 99999))
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: y, Width: 120, Height: 30}, "Reset All") {
			params = defaults
			needsRegen = true
		}
		y += 40
		if gui.Button(rl.Rectangle{X: panelX, Y: y, Width: 250, Height: 30}, "Export "+*out) {
			if err := export(f, *out); err != nil {
				slog.Error("failed to export field", "error", err)
			} else {
				slog.Info("field exported", "path", *out)
			}
		}
		y += 50

		rl.DrawText("YAML Config:", panelX, int32(y), 16, rl.LightGray)
		y += 25
		text := noiseYAML(params)
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			rl.DrawText(line, panelX, int32(y), 14, rl.Gray)
			y += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", panelX, windowHeight-30, 12, rl.Gray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(text)
		}

		rl.EndDrawing()
	}
	rl.UnloadTexture(texture)
}

func generate(n config.NoiseConfig, unscale [2]float64) (*field.Field, error) {
	return field.NewNoise(field.NoiseConfig{
		Seed:     n.Seed,
		Width:    n.Width,
		Height:   n.Height,
		Scale:    n.Scale,
		Octaves:  n.Octaves,
		MaxSpeed: n.MaxSpeed,
		Unscale:  unscale,
	})
}

// speedPixels colors each texel by its decoded speed relative to maxSpeed.
func speedPixels(f *field.Field, unscale [2]float64, maxSpeed float64) []color.RGBA {
	texels := f.Texels()
	out := make([]color.RGBA, len(texels)/4)
	for i := range out {
		t := texels[i*4 : i*4+4]
		if t[3] == 0 {
			continue
		}
		u := field.Decode(float64(t[0]), unscale)
		v := field.Decode(float64(t[1]), unscale)
		s := math.Min(1, math.Hypot(u, v)/maxSpeed)
		out[i] = color.RGBA{
			R: uint8(40 + 200*s),
			G: uint8(60 + 120*s),
			B: uint8(120 + 100*(1-s)),
			A: 255,
		}
	}
	return out
}

func speedTexture(f *field.Field, unscale [2]float64, maxSpeed float64) rl.Texture2D {
	w, h := f.Size()
	img := rl.GenImageColor(w, h, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.UpdateTexture(texture, speedPixels(f, unscale, maxSpeed))
	return texture
}

// drawArrows draws a coarse grid of direction ticks over the preview.
func drawArrows(f *field.Field, unscale [2]float64, maxSpeed float64) {
	const step = 24
	bounds := viewport.World
	for sy := step / 2; sy < previewH; sy += step {
		for sx := step / 2; sx < previewW; sx += step {
			lng := bounds.West() + float64(sx)/previewW*360
			lat := bounds.North() - float64(sy)/previewH*180
			u, v, ok := f.Sample(lng, lat, bounds, unscale)
			if !ok {
				continue
			}
			l := step * 0.45 * math.Min(1, math.Hypot(u, v)/maxSpeed)
			a := math.Atan2(v, u)
			x0 := float32(10 + sx)
			y0 := float32(10 + sy)
			rl.DrawLineV(
				rl.Vector2{X: x0, Y: y0},
				rl.Vector2{X: x0 + float32(math.Cos(a)*l), Y: y0 - float32(math.Sin(a)*l)},
				rl.Color{R: 255, G: 255, B: 255, A: 140},
			)
		}
	}
}

func speedStats(f *field.Field, unscale [2]float64) (mean, peak float64) {
	texels := f.Texels()
	n := 0
	for i := 0; i < len(texels); i += 4 {
		if texels[i+3] == 0 {
			continue
		}
		s := math.Hypot(field.Decode(float64(texels[i]), unscale), field.Decode(float64(texels[i+1]), unscale))
		mean += s
		peak = math.Max(peak, s)
		n++
	}
	if n > 0 {
		mean /= float64(n)
	}
	return mean, peak
}

// export writes the encoded field so it can be passed to -field.
func export(f *field.Field, path string) error {
	w, h := f.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, c := range f.Pixels() {
		img.SetRGBA(i%w, i/w, c)
	}
	rlImg := rl.NewImageFromImage(img)
	defer rl.UnloadImage(rlImg)
	if !rl.ExportImage(*rlImg, path) {
		return fmt.Errorf("raylib could not write %s", path)
	}
	return nil
}

func noiseYAML(n config.NoiseConfig) string {
	data, err := yaml.Marshal(map[string]any{"field": map[string]any{"noise": n}})
	if err != nil {
		return err.Error()
	}
	return string(data)
}
