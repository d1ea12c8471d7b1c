package preprocess

import (
	"image"
	"math"

	"github.com/swdee/go-facewatch/geometry"
	"github.com/swdee/go-facewatch/mapper"
	"golang.org/x/image/draw"
)

// CoverImage scales and crops a decoded image to fill the displayed size,
// matching the transform used to project overlays.  It is used where frames
// arrive as encoded images rather than gocv Mats
func CoverImage(src image.Image, displayed geometry.Size) (*image.RGBA, mapper.Transform, error) {

	b := src.Bounds()
	native := geometry.NewSize(b.Dx(), b.Dy())

	t, err := mapper.ComputeTransform(native, displayed)

	if err != nil {
		return nil, t, err
	}

	dst := image.NewRGBA(image.Rect(0, 0,
		int(math.Round(displayed.Width)), int(math.Round(displayed.Height))))

	// the scaled source placed at the (negative) offset, clipped by dst
	target := image.Rect(
		int(math.Round(t.OffsetX)),
		int(math.Round(t.OffsetY)),
		int(math.Round(t.OffsetX+native.Width*t.Scale())),
		int(math.Round(t.OffsetY+native.Height*t.Scale())),
	)

	draw.CatmullRom.Scale(dst, target, src, b, draw.Src, nil)

	return dst, t, nil
}
