package preprocess

import (
	"image"
	"image/color"
	"math"

	"github.com/swdee/go-facewatch/geometry"
	"github.com/swdee/go-facewatch/mapper"
	"gocv.io/x/gocv"
)

// Resizer defines the struct used for scaling video frames to the displayed
// surface so overlays line up with the frame pixels
type Resizer struct {
	// geom holds the source frame and displayed sizes
	geom mapper.FrameGeometry
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// transform is the scale and offset between source and display
	transform mapper.Transform
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling a frame of srcWidth x
// srcHeight to the displayed size using the given fit mode
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int,
	fit mapper.Fit) (*Resizer, error) {

	r := &Resizer{
		geom: mapper.FrameGeometry{
			Native:    geometry.NewSize(srcWidth, srcHeight),
			Displayed: geometry.NewSize(destWidth, destHeight),
			Fit:       fit,
		},
	}

	// precalculate scaling dimensions
	if err := r.preCalc(); err != nil {
		return nil, err
	}

	r.tempMat = gocv.NewMat()

	return r, nil
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination Mats
func (r *Resizer) preCalc() error {

	t, err := r.geom.Transform()

	if err != nil {
		return err
	}

	r.transform = t
	r.resizeW = int(math.Round(r.geom.Native.Width * t.Scale()))
	r.resizeH = int(math.Round(r.geom.Native.Height * t.Scale()))

	return nil
}

// Resize scales the source frame to the displayed size.  With Cover the
// overflowing axis is cropped equally on both sides, with Contain the short
// axis is padded with the given color
func (r *Resizer) Resize(src gocv.Mat, dest *gocv.Mat, pad color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	destW := int(r.geom.Displayed.Width)
	destH := int(r.geom.Displayed.Height)

	if r.geom.Fit == mapper.Contain {
		xPad := int(math.Round(r.transform.OffsetX))
		yPad := int(math.Round(r.transform.OffsetY))

		gocv.CopyMakeBorder(r.tempMat, dest, yPad, destH-r.resizeH-yPad,
			xPad, destW-r.resizeW-xPad, gocv.BorderConstant, pad)
		return
	}

	// cover offsets are negative, the crop window starts at their magnitude
	x0 := clampInt(int(math.Round(-r.transform.OffsetX)), 0, r.resizeW-destW)
	y0 := clampInt(int(math.Round(-r.transform.OffsetY)), 0, r.resizeH-destH)

	roi := r.tempMat.Region(image.Rect(x0, y0, x0+destW, y0+destH))
	roi.CopyTo(dest)
	roi.Close()
}

// Transform returns the scale and offset used by the resize
func (r *Resizer) Transform() mapper.Transform {
	return r.transform
}

// Geometry returns the frame geometry the resizer was created for
func (r *Resizer) Geometry() mapper.FrameGeometry {
	return r.geom
}

// ResizeSize returns the dimensions the source is scaled to before
// cropping or padding
func (r *Resizer) ResizeSize() image.Point {
	return image.Pt(r.resizeW, r.resizeH)
}

// clampInt restricts val to the range min and max
func clampInt(val, min, max int) int {

	if max < min {
		return min
	}

	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}
