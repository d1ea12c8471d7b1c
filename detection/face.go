package detection

import (
	"errors"
	"fmt"
)

// FaceKeypoint is the index of a landmark in a Detection's Keypoints.  The
// positions are semantic by index and must match the detector's documented
// ordering
type FaceKeypoint int

const (
	LeftEye FaceKeypoint = iota
	RightEye
	NoseTip
	Mouth
	LeftEar
	RightEar

	// FaceKeypointCount is the number of landmarks a face detection must carry
	FaceKeypointCount = 6
)

// ErrTooFewKeypoints is returned when a detection has fewer landmarks than
// the canonical face ordering requires
var ErrTooFewKeypoints = errors.New("detection has too few face keypoints")

var faceKeypointNames = [FaceKeypointCount]string{
	"left eye", "right eye", "nose tip", "mouth", "left ear", "right ear",
}

// String returns the landmark name
func (f FaceKeypoint) String() string {

	if f < 0 || int(f) >= FaceKeypointCount {
		return fmt.Sprintf("keypoint(%d)", int(f))
	}

	return faceKeypointNames[f]
}

// FaceLandmarks provides named access to the six canonical face keypoints
type FaceLandmarks [FaceKeypointCount]Keypoint

// At returns the landmark for the given index
func (f FaceLandmarks) At(k FaceKeypoint) Keypoint {
	return f[k]
}

// FaceLandmarks returns the detection keypoints indexed by FaceKeypoint.  It
// fails with ErrTooFewKeypoints rather than indexing out of range
func (d Detection) FaceLandmarks() (FaceLandmarks, error) {

	var lm FaceLandmarks

	if len(d.Keypoints) < FaceKeypointCount {
		return lm, fmt.Errorf("%w: got %d, need %d", ErrTooFewKeypoints,
			len(d.Keypoints), FaceKeypointCount)
	}

	copy(lm[:], d.Keypoints[:FaceKeypointCount])

	return lm, nil
}
