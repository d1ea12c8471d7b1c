package render

import (
	"image"

	"gocv.io/x/gocv"
)

// KeyPoints renders a filled circle at each face landmark of the overlay set
func KeyPoints(img *gocv.Mat, points []PointOverlay, radius int) {

	for _, p := range points {
		gocv.Circle(img, image.Pt(px(p.Point.X), px(p.Point.Y)),
			radius, keypointColor(int(p.Keypoint)), -1)
	}
}
