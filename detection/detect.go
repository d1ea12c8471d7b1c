package detection

import (
	"github.com/swdee/go-facewatch/geometry"
)

// Category is a single class label and the confidence score assigned to it
// by the detector
type Category struct {
	// Label is the class name of the detected object, eg: "person" or "face"
	Label string `json:"categoryName" validate:"required"`
	// Score is the confidence of the Label in the range [0,1]
	Score float64 `json:"score" validate:"gte=0,lte=1"`
}

// Keypoint is a landmark position normalized to the native image
// resolution, so both X and Y are in the range [0,1]
type Keypoint struct {
	X float64 `json:"x" validate:"gte=0,lte=1"`
	Y float64 `json:"y" validate:"gte=0,lte=1"`
}

// Detection defines the attributes of a single subject observed in one frame
type Detection struct {
	// ID is a unique ID assigned to the detection when it crosses the
	// detector boundary
	ID int64 `json:"id"`
	// BoundingBox is the location of the subject in native pixel units.  It
	// is nil when the detector did not provide one
	BoundingBox *geometry.Box `json:"boundingBox,omitempty"`
	// Categories are ordered by Score, highest confidence first
	Categories []Category `json:"categories" validate:"dive"`
	// Keypoints are the facial landmarks in the canonical FaceKeypoint order
	Keypoints []Keypoint `json:"keypoints" validate:"dive"`
}

// TopCategory returns the highest confidence category.  The second return
// value is false when the detection has no categories
func (d Detection) TopCategory() (Category, bool) {

	if len(d.Categories) == 0 {
		return Category{}, false
	}

	return d.Categories[0], true
}

// Renderable reports if the detection carries the data needed to draw a
// box and confidence label.  Detections that are not renderable still count
// as subjects for classification
func (d Detection) Renderable() bool {
	return d.BoundingBox != nil && len(d.Categories) > 0
}
