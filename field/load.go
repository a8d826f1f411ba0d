package field

import (
	"fmt"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Load decodes an encoded field image (PNG, JPEG, ...) from disk.
// Decoding happens on the CPU and does not need a window.
func Load(path string) (*Field, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading field image: %w", err)
	}

	img := rl.LoadImage(path)
	if img == nil || img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("decoding %s: %w", path, ErrEmptyImage)
	}
	defer rl.UnloadImage(img)

	colors := rl.LoadImageColors(img)
	defer rl.UnloadImageColors(colors)

	return New(int(img.Width), int(img.Height), colors)
}
