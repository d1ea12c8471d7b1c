package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when a source could not provide a frame
var ErrNoFrame = errors.New("no frame available")

// Source provides still frames from a live video at native resolution
type Source interface {
	Read(dst *gocv.Mat) error
	Close() error
}

// VideoSource reads frames from a webcam or video file.  Video files are
// looped back to the first frame when the end is reached
type VideoSource struct {
	video *gocv.VideoCapture
	// file is true when reading from a file rather than a device
	file bool
	sync.Mutex
}

// OpenVideoSource opens a webcam when src is a device id, eg: "0", otherwise
// src is treated as a video file path
func OpenVideoSource(src string) (*VideoSource, error) {

	var (
		video *gocv.VideoCapture
		err   error
		file  bool
	)

	if id, convErr := strconv.Atoi(src); convErr == nil {
		video, err = gocv.OpenVideoCapture(id)
	} else {
		video, err = gocv.VideoCaptureFile(src)
		file = true
	}

	if err != nil {
		return nil, fmt.Errorf("error opening video source %s: %w", src, err)
	}

	return &VideoSource{video: video, file: file}, nil
}

// Read the next frame into dst
func (v *VideoSource) Read(dst *gocv.Mat) error {
	v.Lock()
	defer v.Unlock()

	if ok := v.video.Read(dst); ok && !dst.Empty() {
		return nil
	}

	if !v.file {
		return ErrNoFrame
	}

	// last video frame reached so loop back to start of video
	v.video.Set(gocv.VideoCapturePosFrames, 0)

	if ok := v.video.Read(dst); !ok || dst.Empty() {
		return ErrNoFrame
	}

	return nil
}

// Close the video capture device or file
func (v *VideoSource) Close() error {
	v.Lock()
	defer v.Unlock()

	return v.video.Close()
}
