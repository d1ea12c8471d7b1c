package mapper

import (
	"errors"
	"fmt"

	"github.com/swdee/go-facewatch/detection"
	"github.com/swdee/go-facewatch/geometry"
	"gonum.org/v1/gonum/mat"
)

// labelRaise is how far above the box top the confidence label is anchored
// and labelInset the amount the label is narrower than its box
const (
	labelRaise = 30
	labelInset = 10
)

// ErrDegenerateGeometry is returned when the native or displayed size has a
// zero, negative or non finite dimension, eg: the video has not loaded yet
var ErrDegenerateGeometry = errors.New("degenerate frame geometry")

// Fit is the CSS object-fit mode used to place the media in its container
type Fit int

const (
	// Cover scales the media to fill the container, cropping the overflow
	// along one axis.  Offsets are zero or negative
	Cover Fit = iota
	// Contain scales the media to fit inside the container, letterboxing
	// along one axis.  Offsets are zero or positive
	Contain
)

// String returns the CSS name of the fit mode
func (f Fit) String() string {
	switch f {
	case Contain:
		return "contain"
	default:
		return "cover"
	}
}

// FrameGeometry is a snapshot of the native media resolution and the size
// of the surface it is displayed on, taken for a single frame
type FrameGeometry struct {
	Native    geometry.Size
	Displayed geometry.Size
	Fit       Fit
}

// Transform returns the transform for the frame geometry
func (g FrameGeometry) Transform() (Transform, error) {
	return ComputeFitTransform(g.Native, g.Displayed, g.Fit)
}

// Transform maps detection space coordinates into display space pixels.
// ScaleX and ScaleY are always equal and at most one offset is non zero
type Transform struct {
	ScaleX  float64 `json:"scaleX"`
	ScaleY  float64 `json:"scaleY"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// ComputeTransform calculates the uniform scale factor and crop offset that
// emulate a CSS "object-fit: cover" of the native media within the
// displayed container
func ComputeTransform(native, displayed geometry.Size) (Transform, error) {
	return ComputeFitTransform(native, displayed, Cover)
}

// ComputeFitTransform calculates the transform for the given fit mode
func ComputeFitTransform(native, displayed geometry.Size, fit Fit) (Transform, error) {

	if !native.Valid() || !displayed.Valid() {
		return Transform{}, fmt.Errorf("%w: native=%vx%v displayed=%vx%v",
			ErrDegenerateGeometry, native.Width, native.Height,
			displayed.Width, displayed.Height)
	}

	videoAspect := native.Width / native.Height
	containerAspect := displayed.Width / displayed.Height

	// cover limits on the height when the video is relatively wider, contain
	// does the opposite
	byHeight := videoAspect > containerAspect

	if fit == Contain {
		byHeight = !byHeight
	}

	if byHeight {
		scale := displayed.Height / native.Height
		scaledWidth := native.Width * scale

		return Transform{
			ScaleX:  scale,
			ScaleY:  scale,
			OffsetX: (displayed.Width - scaledWidth) / 2,
		}, nil
	}

	scale := displayed.Width / native.Width
	scaledHeight := native.Height * scale

	return Transform{
		ScaleX:  scale,
		ScaleY:  scale,
		OffsetY: (displayed.Height - scaledHeight) / 2,
	}, nil
}

// Scale returns the uniform scale factor
func (t Transform) Scale() float64 {
	return t.ScaleX
}

// ProjectedBox is a bounding box in display space pixels
type ProjectedBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Box returns the projected box as a geometry.Box
func (p ProjectedBox) Box() geometry.Box {
	return geometry.NewBox(p.Left, p.Top, p.Width, p.Height)
}

// ProjectBox maps a bounding box in native pixel units into display space
func (t Transform) ProjectBox(box geometry.Box) ProjectedBox {
	return ProjectedBox{
		Left:   box.OriginX*t.ScaleX + t.OffsetX,
		Top:    box.OriginY*t.ScaleY + t.OffsetY,
		Width:  box.Width * t.ScaleX,
		Height: box.Height * t.ScaleY,
	}
}

// ProjectKeypoint maps a keypoint normalized to the native resolution into
// display space.  Unlike bounding boxes the keypoint is first scaled up by
// the native size
func (t Transform) ProjectKeypoint(p detection.Keypoint,
	native geometry.Size) geometry.Point {

	return geometry.Point{
		X: p.X*native.Width*t.ScaleX + t.OffsetX,
		Y: p.Y*native.Height*t.ScaleY + t.OffsetY,
	}
}

// ProjectKeypoints maps a set of normalized keypoints into display space in
// one affine matrix product
func (t Transform) ProjectKeypoints(points []detection.Keypoint,
	native geometry.Size) []geometry.Point {

	if len(points) == 0 {
		return nil
	}

	// homogeneous rows of native pixel coordinates [x, y, 1]
	src := mat.NewDense(len(points), 3, nil)

	for i, p := range points {
		src.Set(i, 0, p.X*native.Width)
		src.Set(i, 1, p.Y*native.Height)
		src.Set(i, 2, 1)
	}

	var dst mat.Dense
	dst.Mul(src, t.Affine())

	res := make([]geometry.Point, len(points))

	for i := range res {
		res[i] = geometry.Point{X: dst.At(i, 0), Y: dst.At(i, 1)}
	}

	return res
}

// Affine returns the transform as a 3x2 matrix applied to homogeneous row
// vectors [x, y, 1]
func (t Transform) Affine() *mat.Dense {
	return mat.NewDense(3, 2, []float64{
		t.ScaleX, 0,
		0, t.ScaleY,
		t.OffsetX, t.OffsetY,
	})
}

// LabelAnchor is the display position and width of a box's confidence label
type LabelAnchor struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
}

// LabelAnchor returns where the confidence label of the box is placed.  The
// result is not clamped and may fall outside the display surface
func (p ProjectedBox) LabelAnchor() LabelAnchor {
	return LabelAnchor{
		X:     p.Left,
		Y:     p.Top - labelRaise,
		Width: p.Width - labelInset,
	}
}

// Clamp keeps the label anchor within the displayed surface
func (a LabelAnchor) Clamp(displayed geometry.Size) LabelAnchor {

	if a.Width < 0 {
		a.Width = 0
	}

	if a.Width > displayed.Width {
		a.Width = displayed.Width
	}

	if a.X < 0 {
		a.X = 0
	}

	if a.X+a.Width > displayed.Width {
		a.X = displayed.Width - a.Width
	}

	if a.Y > displayed.Height-labelRaise {
		a.Y = displayed.Height - labelRaise
	}

	if a.Y < 0 {
		a.Y = 0
	}

	return a
}
