package facewatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/swdee/go-facewatch/detection"
	"github.com/swdee/go-facewatch/geometry"
	"gocv.io/x/gocv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrDetectorUnavailable is returned when the detection service responds
// with a non success status
var ErrDetectorUnavailable = errors.New("detector unavailable")

// Detector is the detection oracle.  Given a still frame at its native
// resolution it returns the subjects observed in it
type Detector interface {
	Detect(ctx context.Context, img gocv.Mat) ([]detection.Detection, error)
}

// Format is the JSON response format of the detection service
type Format int

const (
	// FormatDetections is a {"detections":[...]} document with boxes in
	// native pixels and keypoints normalized to the frame
	FormatDetections Format = iota
	// FormatYOLOv5Face is the list of results returned by a YOLOv5-face
	// TorchServe handler, with boxes and landmarks as ratios of the frame
	FormatYOLOv5Face
)

// ParseFormat returns the Format of the given name
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "detections":
		return FormatDetections, nil
	case "yolov5face":
		return FormatYOLOv5Face, nil
	}

	return FormatDetections, fmt.Errorf("unknown detector format: %s", name)
}

// detectResponse is the JSON body returned by the detection service
type detectResponse struct {
	Detections []detection.Detection `json:"detections"`
}

// ratioResult is a single face in a YOLOv5-face response
type ratioResult struct {
	XYWHRatio      []float64 `json:"xywh_ratio"`
	Conf           float64   `json:"conf"`
	LandmarksRatio []float64 `json:"landmarks_ratio"`
}

// toDetection converts the ratio result into a detection in native pixels.
// The five landmarks are eyes, nose and the two mouth corners, which are
// merged into a single mouth keypoint.  No ear keypoints are available
func (r ratioResult) toDetection(native geometry.Size) (detection.Detection, error) {

	if len(r.XYWHRatio) != 4 {
		return detection.Detection{}, fmt.Errorf("%w: xywh_ratio has %d values",
			detection.ErrInvalidDetection, len(r.XYWHRatio))
	}

	cx := r.XYWHRatio[0] * native.Width
	cy := r.XYWHRatio[1] * native.Height
	w := r.XYWHRatio[2] * native.Width
	h := r.XYWHRatio[3] * native.Height

	box := geometry.BoxFromCorners(cx-w/2, cy-h/2, cx+w/2, cy+h/2)

	det := detection.Detection{
		BoundingBox: &box,
		Categories:  []detection.Category{{Label: "face", Score: r.Conf}},
	}

	if len(r.LandmarksRatio) < 10 {
		return det, nil
	}

	lm := r.LandmarksRatio
	pt := func(x, y float64) detection.Keypoint {
		return detection.Keypoint{X: clampUnit(x), Y: clampUnit(y)}
	}

	det.Keypoints = []detection.Keypoint{
		pt(lm[0], lm[1]),
		pt(lm[2], lm[3]),
		pt(lm[4], lm[5]),
		pt((lm[6]+lm[8])/2, (lm[7]+lm[9])/2),
	}

	return det, nil
}

// clampUnit restricts v to the range 0 to 1, landmarks near the frame edge
// can be predicted just outside it
func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// HTTPDetector runs detection on a remote model server, posting each frame
// as a JPEG and decoding the JSON detections returned
type HTTPDetector struct {
	client    *http.Client
	url       string
	format    Format
	validator *detection.Validator
	// idGen provides the next number for each detection ID
	idGen *detection.IDGenerator
}

// NewHTTPDetector returns a detector calling the prediction endpoint at url.
// The timeout applies to each detection request
func NewHTTPDetector(url string, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		client: &http.Client{
			Timeout: timeout,
		},
		url:       url,
		validator: detection.NewValidator(),
		idGen:     detection.NewIDGenerator(),
	}
}

// IsAlive checks the detection service can be reached
func (d *HTTPDetector) IsAlive(ctx context.Context) bool {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)

	if err != nil {
		return false
	}

	resp, err := d.client.Do(req)

	if err != nil {
		return false
	}

	resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

// Detect encodes the frame as a JPEG and runs detection on it
func (d *HTTPDetector) Detect(ctx context.Context, img gocv.Mat) ([]detection.Detection, error) {

	if img.Empty() {
		return nil, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)

	if err != nil {
		return nil, fmt.Errorf("error encoding frame: %w", err)
	}

	defer buf.Close()

	return d.detect(ctx, buf.GetBytes(), geometry.NewSize(img.Cols(), img.Rows()))
}

// SetFormat sets the response format of the detection service
func (d *HTTPDetector) SetFormat(f Format) {
	d.format = f
}

// DetectBytes runs detection on an already encoded image
func (d *HTTPDetector) DetectBytes(ctx context.Context, img []byte) ([]detection.Detection, error) {

	var native geometry.Size

	if d.format == FormatYOLOv5Face {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(img))

		if err != nil {
			return nil, fmt.Errorf("error reading image size: %w", err)
		}

		native = geometry.NewSize(cfg.Width, cfg.Height)
	}

	return d.detect(ctx, img, native)
}

// detect posts the encoded image and decodes the detections.  The native
// size is only needed for ratio based response formats
func (d *HTTPDetector) detect(ctx context.Context, img []byte,
	native geometry.Size) ([]detection.Detection, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url,
		bytes.NewReader(img))

	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http error: %s", ErrDetectorUnavailable, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	dets, err := d.decode(body, native)

	if err != nil {
		return nil, err
	}

	if err = d.validator.Validate(dets); err != nil {
		return nil, err
	}

	for i := range dets {
		dets[i].ID = d.idGen.GetNext()
	}

	return dets, nil
}

// decode the response body according to the service format
func (d *HTTPDetector) decode(body []byte, native geometry.Size) ([]detection.Detection, error) {

	if d.format != FormatYOLOv5Face {
		var res detectResponse

		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("error decoding detections: %w", err)
		}

		return res.Detections, nil
	}

	var results []ratioResult

	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("error decoding detections: %w", err)
	}

	dets := make([]detection.Detection, 0, len(results))

	for _, r := range results {
		det, err := r.toDetection(native)

		if err != nil {
			return nil, err
		}

		dets = append(dets, det)
	}

	return dets, nil
}

// Close releases idle connections held by the client
func (d *HTTPDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
