package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/swdee/go-facewatch/anomaly"
	"github.com/swdee/go-facewatch/detection"
	"github.com/swdee/go-facewatch/geometry"
	"github.com/swdee/go-facewatch/mapper"
)

// BoxOverlay is a bounding box and its confidence label in display space
type BoxOverlay struct {
	// DetectionID is the ID of the detection the box was drawn for
	DetectionID int64 `json:"detectionId"`
	// Box is the projected bounding box
	Box mapper.ProjectedBox `json:"box"`
	// Label is where the confidence text is placed, clamped to the display
	Label mapper.LabelAnchor `json:"label"`
	// Visible is the fraction of the box within the displayed surface, a
	// cover fit crops boxes near the frame edges
	Visible float64    `json:"visible"`
	Text    string     `json:"text"`
	Color   color.RGBA `json:"-"`
}

// PointOverlay is a single keypoint marker in display space
type PointOverlay struct {
	DetectionID int64                  `json:"detectionId"`
	Keypoint    detection.FaceKeypoint `json:"keypoint"`
	Point       geometry.Point         `json:"point"`
}

// Set is the complete collection of overlays for one frame.  A new Set
// replaces the previous one entirely
type Set struct {
	// Seq is the frame sequence number the overlays were built from
	Seq       uint64           `json:"seq"`
	Displayed geometry.Size    `json:"displayed"`
	Transform mapper.Transform `json:"transform"`
	Boxes     []BoxOverlay     `json:"boxes"`
	Points    []PointOverlay   `json:"points"`
	Status    []anomaly.Event  `json:"status"`
}

// Len returns the number of overlay elements in the set
func (s Set) Len() int {
	return len(s.Boxes) + len(s.Points) + len(s.Status)
}

// Diff reports the number of elements cleared from the previous frame's
// set and the number added for the current frame
type Diff struct {
	Removed int `json:"removed"`
	Added   int `json:"added"`
}

// Frame holds the per frame inputs the overlays are built from
type Frame struct {
	Seq        uint64
	Geometry   mapper.FrameGeometry
	Transform  mapper.Transform
	Detections []detection.Detection
	Events     []anomaly.Event
	// Allow restricts rendered boxes to detections whose top category is
	// one of the given labels.  Empty allows all
	Allow []string
}

// Build creates the overlay set for the frame, clearing every element of
// the previous set.  Detections without a bounding box or categories are
// skipped for rendering but have already been counted by the classifier
func Build(prev Set, f Frame) (Set, Diff) {

	set := Set{
		Seq:       f.Seq,
		Displayed: f.Geometry.Displayed,
		Transform: f.Transform,
		Boxes:     make([]BoxOverlay, 0, len(f.Detections)),
		Points:    make([]PointOverlay, 0),
		Status:    append([]anomaly.Event(nil), f.Events...),
	}

	screen := geometry.NewBox(0, 0, f.Geometry.Displayed.Width, f.Geometry.Displayed.Height)

	for i, det := range f.Detections {

		if !det.Renderable() {
			continue
		}

		top, _ := det.TopCategory()

		// exclude detections that are not a given class/label
		if len(f.Allow) > 0 && !containsStr(f.Allow, top.Label) {
			continue
		}

		box := f.Transform.ProjectBox(*det.BoundingBox)

		set.Boxes = append(set.Boxes, BoxOverlay{
			DetectionID: det.ID,
			Box:         box,
			Label:       box.LabelAnchor().Clamp(f.Geometry.Displayed),
			Visible:     visibleFraction(box.Box(), screen),
			Text:        ConfidenceText(top),
			Color:       boxColor(i),
		})

		points := f.Transform.ProjectKeypoints(det.Keypoints, f.Geometry.Native)

		for j, pt := range points {
			set.Points = append(set.Points, PointOverlay{
				DetectionID: det.ID,
				Keypoint:    detection.FaceKeypoint(j),
				Point:       pt,
			})
		}
	}

	return set, Diff{Removed: prev.Len(), Added: set.Len()}
}

// visibleFraction returns how much of the box lies within the screen
func visibleFraction(box, screen geometry.Box) float64 {

	area := box.Area()

	if area <= 0 {
		return 0
	}

	return box.Intersect(screen).Area() / area
}

// ConfidenceText formats the category label and score as a percentage
func ConfidenceText(c detection.Category) string {
	return fmt.Sprintf("%s %d%%", c.Label, int(math.Round(c.Score*100)))
}

// containsStr is a function that takes a string slice and checks if a given
// string exists in the slice
func containsStr(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}

	return false
}
