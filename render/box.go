package render

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// boxLabel holds the precalculated position of a box's confidence label
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Boxes renders the bounding boxes and confidence labels of the overlay set
// onto an image that has already been scaled to the displayed size
func Boxes(img *gocv.Mat, boxes []BoxOverlay, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(boxes))

	for _, b := range boxes {

		// draw rectangle around detected subject
		r := b.Box.Box()
		rect := image.Rect(px(r.OriginX), px(r.OriginY), px(r.Right()), px(r.Bottom()))
		gocv.Rectangle(img, rect, b.Color, lineThickness)

		textSize := gocv.GetTextSize(b.Text, font.Face, font.Scale, font.Thickness)

		// label plate spans the anchor width but never less than the text
		plateWidth := px(b.Label.Width)

		if minWidth := textSize.X + font.LeftPad + font.RightPad; plateWidth < minWidth {
			plateWidth = minWidth
		}

		left := px(b.Label.X)
		top := px(b.Label.Y)

		bRect := image.Rect(left, top, left+plateWidth,
			top+textSize.Y+font.TopPad+font.BottomPad)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     b.Color,
			text:    b.Text,
			textPos: image.Pt(left+font.LeftPad, top+font.TopPad+textSize.Y),
		})
	}

	// draw all precalculated box labels so they are the top most layer on the
	// image and don't get overlapped by neighbouring boxes
	for _, box := range boxLabels {
		gocv.Rectangle(img, box.rect, box.clr, -1)

		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// px rounds a display coordinate to the nearest pixel
func px(v float64) int {
	return int(math.Round(v))
}
