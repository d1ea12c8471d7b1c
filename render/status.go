package render

import (
	"image"
	"strings"

	"github.com/swdee/go-facewatch/anomaly"
	"gocv.io/x/gocv"
)

// bannerHeight is the height in pixels of the status banner
const bannerHeight = 24

// StatusBanner renders the frame's anomaly labels across the top of the
// image using the color of the most severe label
func StatusBanner(img *gocv.Mat, events []anomaly.Event, font Font) {

	if len(events) == 0 {
		return
	}

	labels := make([]string, 0, len(events))

	// the last label is the most specific, eg: FaceTurned after PersonDetected
	clr := statusColor(events[len(events)-1].Label)

	for _, e := range events {
		labels = append(labels, string(e.Label))
	}

	rect := image.Rect(0, 0, img.Cols(), bannerHeight)
	gocv.Rectangle(img, rect, clr, -1)

	gocv.PutTextWithParams(img, strings.Join(labels, ", "),
		image.Pt(font.LeftPad, bannerHeight-font.BottomPad),
		font.Face, font.Scale, Black, font.Thickness,
		font.LineType, false)
}

// Draw renders the complete overlay set onto an image scaled to the
// displayed size
func Draw(img *gocv.Mat, set Set, style Style) {

	Boxes(img, set.Boxes, style.Font, style.LineThickness)
	KeyPoints(img, set.Points, style.PointRadius)

	if style.Banner {
		StatusBanner(img, set.Status, style.Font)
	}
}
