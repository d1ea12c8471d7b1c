package anomaly

import (
	"errors"
	"math"
	"time"

	"github.com/swdee/go-facewatch/detection"
)

// Label is a per frame status describing subject presence, count and
// orientation
type Label string

const (
	NoPerson        Label = "NoPerson"
	MultiplePersons Label = "MultiplePersons"
	PersonDetected  Label = "PersonDetected"
	FaceTurned      Label = "FaceTurned"
)

// DefaultTurnThreshold is the fraction of the face width an eye must be
// within of the face center for the face to be considered turned away
const DefaultTurnThreshold = 0.15

// ErrNoBoundingBox is returned when orientation is requested for a
// detection without a bounding box
var ErrNoBoundingBox = errors.New("detection has no bounding box")

// Anomaly reports if the label is one that should draw attention, ie:
// anything other than a single person facing the camera
func (l Label) Anomaly() bool {
	return l != PersonDetected
}

// Event is a label emitted for a frame along with the time it was observed
type Event struct {
	Label Label     `json:"label"`
	Time  time.Time `json:"time"`
}

// Classifier turns the detections of a single frame into anomaly labels.  It
// holds no state between frames
type Classifier struct {
	// Threshold is the fraction of face width used by the face turned test
	Threshold float64
	// Now returns the timestamp given to emitted events
	Now func() time.Time
}

// NewClassifier returns a Classifier using the default turn threshold and
// the wall clock
func NewClassifier() *Classifier {
	return &Classifier{
		Threshold: DefaultTurnThreshold,
		Now:       time.Now,
	}
}

// Classify returns the labels for the frame's detections.  Zero detections
// yields NoPerson, more than one yields MultiplePersons, and exactly one
// yields PersonDetected optionally followed by FaceTurned
func (c *Classifier) Classify(dets []detection.Detection) []Event {

	now := c.Now()

	switch {
	case len(dets) == 0:
		return []Event{{Label: NoPerson, Time: now}}

	case len(dets) > 1:
		return []Event{{Label: MultiplePersons, Time: now}}
	}

	events := []Event{{Label: PersonDetected, Time: now}}

	// a detection without the landmarks needed cannot be judged as turned
	if turned, err := IsFaceTurned(dets[0], c.Threshold); err == nil && turned {
		events = append(events, Event{Label: FaceTurned, Time: now})
	}

	return events
}

// IsFaceTurned applies a geometric heuristic to decide if the face is turned
// sideways.  Keypoint x coordinates are denormalized by the bounding box
// width only; the missing box origin cancels as only relative distances are
// compared.  The face width is not guarded against going negative when the
// detector swaps the ear landmarks, which flips the comparison.
func IsFaceTurned(d detection.Detection, threshold float64) (bool, error) {

	if d.BoundingBox == nil {
		return false, ErrNoBoundingBox
	}

	lm, err := d.FaceLandmarks()

	if err != nil {
		return false, err
	}

	width := d.BoundingBox.Width

	leftEyeX := lm.At(detection.LeftEye).X * width
	rightEyeX := lm.At(detection.RightEye).X * width
	jawLeftX := lm.At(detection.LeftEar).X * width
	jawRightX := lm.At(detection.RightEar).X * width

	faceWidth := jawRightX - jawLeftX
	faceCenterX := (jawLeftX + jawRightX) / 2
	limit := threshold * faceWidth

	return math.Abs(leftEyeX-faceCenterX) < limit ||
		math.Abs(rightEyeX-faceCenterX) < limit, nil
}

// Labels returns just the labels of the events
func Labels(events []Event) []Label {

	labels := make([]Label, len(events))

	for i, e := range events {
		labels[i] = e.Label
	}

	return labels
}
