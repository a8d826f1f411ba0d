// Package ui draws the on-screen panels: the parameter controls, the HUD and
// the stats readouts. Readouts are declared as descriptors so a panel's
// layout lives next to the data it shows.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// WidgetType specifies how a field should be rendered.
type WidgetType int

const (
	WidgetText   WidgetType = iota // Plain text with format string
	WidgetBar                      // Progress bar [0, 1]
	WidgetSpacer                   // Vertical spacing
)

// FieldDescriptor defines how to display a single piece of data.
type FieldDescriptor struct {
	Label      string
	Widget     WidgetType
	Format     string            // Printf format for Getter values
	Visible    func(any) bool    // nil = always visible
	Getter     func(any) float32 // Numeric value
	TextGetter func(any) string  // Takes precedence over Getter for text
}

// SectionDescriptor defines a group of fields with a header.
type SectionDescriptor struct {
	Title   string
	Fields  []FieldDescriptor
	Visible func(any) bool
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	BarBg          rl.Color
	BarFill        rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 12, G: 16, B: 24, A: 225},
		PanelBorder:    rl.Color{R: 50, G: 64, B: 80, A: 255},
		SectionHeader:  rl.Color{R: 140, G: 200, B: 255, A: 255},
		LabelColor:     rl.LightGray,
		ValueColor:     rl.White,
		BarBg:          rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFill:        rl.Color{R: 100, G: 150, B: 200, A: 255},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     90,
		BarHeight:      12,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}
