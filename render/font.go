package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
	}
}

// Style groups the drawing parameters for a frame's overlays
type Style struct {
	Font Font
	// LineThickness of the bounding boxes
	LineThickness int
	// PointRadius of the keypoint circles
	PointRadius int
	// Banner enables drawing the anomaly status banner across the top
	Banner bool
}

// DefaultStyle returns default overlay style settings
func DefaultStyle() Style {
	return Style{
		Font:          DefaultFont(),
		LineThickness: 2,
		PointRadius:   3,
		Banner:        true,
	}
}
