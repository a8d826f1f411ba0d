package ui

import (
	"math"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windtrails/telemetry"
)

func TestParticlesFromSlider(t *testing.T) {
	tests := []struct {
		v    float32
		want int
	}{
		{13, 8192},
		{12.6, 8192},
		{12.4, 4096},
		{0, 1 << MinParticlesLog2},
		{40, 1 << MaxParticlesLog2},
	}
	for _, tt := range tests {
		if got := ParticlesFromSlider(tt.v); got != tt.want {
			t.Errorf("ParticlesFromSlider(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestMaxAgeFromSlider(t *testing.T) {
	if got := MaxAgeFromSlider(19.6); got != 20 {
		t.Errorf("MaxAgeFromSlider(19.6) = %d, want 20", got)
	}
	if got := MaxAgeFromSlider(-3); got != MinMaxAge {
		t.Errorf("MaxAgeFromSlider(-3) = %d, want %d", got, MinMaxAge)
	}
}

func TestLineWidthFromSlider(t *testing.T) {
	tests := []struct {
		v    float32
		want float64
	}{
		{1.2, 1.0},
		{1.3, 1.5},
		{0.1, MinLineWidth},
		{9, MaxLineWidth},
	}
	for _, tt := range tests {
		if got := LineWidthFromSlider(tt.v); got != tt.want {
			t.Errorf("LineWidthFromSlider(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestSectionHeight(t *testing.T) {
	r := NewRenderer()
	lh := r.Theme.LineHeight

	sd := SectionDescriptor{
		Title: "T",
		Fields: []FieldDescriptor{
			{Label: "a", Widget: WidgetText},
			{Label: "b", Widget: WidgetBar},
			{Label: "c", Widget: WidgetSpacer},
			{Label: "hidden", Widget: WidgetText, Visible: func(any) bool { return false }},
		},
	}
	want := lh + lh + (lh + 2) + 6 + 4
	if got := r.SectionHeight(sd, nil); got != want {
		t.Errorf("SectionHeight = %d, want %d", got, want)
	}

	sd.Visible = func(any) bool { return false }
	if got := r.SectionHeight(sd, nil); got != 0 {
		t.Errorf("hidden section height = %d, want 0", got)
	}
}

func TestStatsSections(t *testing.T) {
	ws := telemetry.WindowStats{ActiveParticles: 42, Segments: 7, Fill: 0.25, AllocatedBytes: 2048}

	var active, fill float32
	var allocated string
	for _, sd := range statsSections() {
		for _, fd := range sd.Fields {
			switch fd.Label {
			case "Active":
				active = fd.Getter(ws)
			case "Fill":
				fill = fd.Getter(ws)
			case "Allocated":
				allocated = fd.TextGetter(ws)
			}
		}
	}
	if active != 42 {
		t.Errorf("Active = %v, want 42", active)
	}
	if fill != 0.25 {
		t.Errorf("Fill = %v, want 0.25", fill)
	}
	if allocated != "2.0 KiB" {
		t.Errorf("Allocated = %q, want 2.0 KiB", allocated)
	}
}

func TestControlsPanel_Contains(t *testing.T) {
	c := NewControlsPanel(10, 10, 200)
	if !c.Contains(20, 20) {
		t.Error("point inside visible panel not contained")
	}
	if c.Contains(300, 20) {
		t.Error("point right of panel contained")
	}
	c.Toggle()
	if c.Contains(20, 20) {
		t.Error("hidden panel should not contain points")
	}
}

func TestColorWithHue(t *testing.T) {
	c := rl.Color{R: 140, G: 200, B: 255, A: 230}

	red := ColorWithHue(c, 0)
	if red.A != c.A {
		t.Errorf("alpha = %d, want %d", red.A, c.A)
	}
	if red.R != 255 || red.R <= red.G || red.R <= red.B {
		t.Errorf("hue 0 gave %v, want red dominant", red)
	}

	if h := ColorHue(ColorWithHue(c, 120)); math.Abs(float64(h)-120) > 2 {
		t.Errorf("hue after edit = %v, want ~120", h)
	}
}
