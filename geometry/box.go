package geometry

import "math"

// Size is the width and height of an image, video frame or display surface
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSize creates a Size from integer pixel dimensions such as those
// returned by gocv.Mat Cols() and Rows()
func NewSize(width, height int) Size {
	return Size{
		Width:  float64(width),
		Height: float64(height),
	}
}

// Aspect returns the width to height ratio
func (s Size) Aspect() float64 {
	return s.Width / s.Height
}

// Valid reports if both dimensions are finite and greater than zero
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0 &&
		!math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// Point represents the x,y coordinates of a position
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box represents a rectangle in (origin x, origin y, width, height) format
type Box struct {
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
	Width   float64 `json:"width" validate:"gte=0"`
	Height  float64 `json:"height" validate:"gte=0"`
}

// NewBox creates a new Box with given coordinates
func NewBox(x, y, width, height float64) Box {
	return Box{
		OriginX: x,
		OriginY: y,
		Width:   width,
		Height:  height,
	}
}

// Right returns the bottom-right x coordinate of the box
func (b Box) Right() float64 {
	return b.OriginX + b.Width
}

// Bottom returns the bottom-right y coordinate of the box
func (b Box) Bottom() float64 {
	return b.OriginY + b.Height
}

// Area returns the area of the box
func (b Box) Area() float64 {
	return b.Width * b.Height
}

// Intersect returns the overlapping region of two boxes.  A box with zero
// width and height is returned when they do not overlap
func (b Box) Intersect(other Box) Box {

	x1 := math.Max(b.OriginX, other.OriginX)
	y1 := math.Max(b.OriginY, other.OriginY)
	x2 := math.Min(b.Right(), other.Right())
	y2 := math.Min(b.Bottom(), other.Bottom())

	if x2 <= x1 || y2 <= y1 {
		return Box{}
	}

	return NewBox(x1, y1, x2-x1, y2-y1)
}

// BoxFromCorners creates a Box from top-left and bottom-right corners
func BoxFromCorners(left, top, right, bottom float64) Box {
	return NewBox(left, top, right-left, bottom-top)
}
