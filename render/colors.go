package render

import (
	"image/color"

	"github.com/swdee/go-facewatch/anomaly"
)

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 56, B: 56, A: 255}
	Green  = color.RGBA{R: 72, G: 249, B: 10, A: 255}
	Orange = color.RGBA{R: 255, G: 112, B: 31, A: 255}

	// boxColors is a list of colors cycled through for each subject's
	// bounding box
	boxColors = []color.RGBA{
		{R: 0, G: 194, B: 255, A: 255},   // #00C2FF
		{R: 255, G: 178, B: 29, A: 255},  // #FFB21D
		{R: 207, G: 210, B: 49, A: 255},  // #CFD231
		{R: 0, G: 212, B: 187, A: 255},   // #00D4BB
		{R: 100, G: 115, B: 255, A: 255}, // #6473FF
		{R: 255, G: 149, B: 200, A: 255}, // #FF95C8
		{R: 132, G: 56, B: 255, A: 255},  // #8438FF
		{R: 61, G: 219, B: 134, A: 255},  // #3DDB86
	}

	// faceLandmarkColors correspond to the six face keypoints in canonical
	// order
	faceLandmarkColors = []color.RGBA{
		{R: 51, G: 153, B: 255, A: 255}, // left eye
		{R: 51, G: 153, B: 255, A: 255}, // right eye
		{R: 255, G: 0, B: 0, A: 255},    // nose tip
		{R: 0, G: 255, B: 0, A: 255},    // mouth
		{R: 255, G: 178, B: 29, A: 255}, // left ear
		{R: 255, G: 178, B: 29, A: 255}, // right ear
	}

	// statusColors are the banner colors for each anomaly label
	statusColors = map[anomaly.Label]color.RGBA{
		anomaly.PersonDetected:  Green,
		anomaly.NoPerson:        Red,
		anomaly.MultiplePersons: Red,
		anomaly.FaceTurned:      Orange,
	}
)

// boxColor returns the color used for the subject at the given index
func boxColor(i int) color.RGBA {
	return boxColors[i%len(boxColors)]
}

// keypointColor returns the color for the landmark at the given index
func keypointColor(i int) color.RGBA {

	if i < len(faceLandmarkColors) {
		return faceLandmarkColors[i]
	}

	return Pink
}

// statusColor returns the banner color for a label
func statusColor(l anomaly.Label) color.RGBA {

	if clr, ok := statusColors[l]; ok {
		return clr
	}

	return White
}
