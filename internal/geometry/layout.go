package geometry

import "fmt"

// Panel and canvas geometry of the 4-panel videowall. Each panel is a portrait
// 2160×3840 display; four of them side by side form the 8640×3840 desktop.
const (
	PanelWidth  = 2160
	PanelHeight = 3840
	PanelCount  = 4

	// OutputWidth and OutputHeight are half of the 8640×3840 destination canvas,
	// same 2.25 aspect ratio.
	OutputWidth  = 4320
	OutputHeight = 1920
)

// Reference input canvases for the two recognised layouts.
var (
	HorizontalReference = Dimensions{Width: PanelWidth * PanelCount, Height: PanelHeight}
	VerticalReference   = Dimensions{Width: PanelHeight, Height: PanelWidth * PanelCount}
)

// Dimensions is the probed frame size of a source video.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both sides are positive.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%d×%d", d.Width, d.Height)
}

// Layout identifies how the four panels are arranged in the source canvas.
type Layout string

// Supported layouts.
const (
	// LayoutHorizontal: four portrait strips side by side (e.g. 8640×3840).
	LayoutHorizontal Layout = "horizontal_composite"
	// LayoutVertical: four landscape bands stacked top to bottom (e.g. 3840×8640).
	LayoutVertical Layout = "vertical_stack"
)

// Detect classifies a canvas. Taller-than-wide sources are vertical stacks;
// everything else, including square and unknown sizes, is a horizontal composite.
func Detect(d Dimensions) Layout {
	if d.Height > d.Width {
		return LayoutVertical
	}
	return LayoutHorizontal
}

// Describe returns a short human-readable label for the layout.
func (l Layout) Describe() string {
	switch l {
	case LayoutVertical:
		return "vertical stack (4 bands, rotated 90° CCW)"
	default:
		return "horizontal composite (4 strips)"
	}
}
