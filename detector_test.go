package facewatch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/swdee/go-facewatch/detection"
	"github.com/swdee/go-facewatch/geometry"
	"gocv.io/x/gocv"
)

const faceResponse = `{"detections":[{
	"boundingBox":{"originX":100,"originY":100,"width":200,"height":150},
	"categories":[{"categoryName":"face","score":0.91}],
	"keypoints":[{"x":0.4,"y":0.4},{"x":0.6,"y":0.4},{"x":0.5,"y":0.5},
		{"x":0.5,"y":0.6},{"x":0.3,"y":0.45},{"x":0.7,"y":0.45}]
}]}`

func TestHTTPDetectorDetectBytes(t *testing.T) {

	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(faceResponse))
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL, time.Second)
	defer d.Close()

	dets, err := d.DetectBytes(context.Background(), []byte("jpeg-bytes"))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(gotBody) != "jpeg-bytes" {
		t.Errorf("expected image body to be posted, got %q", gotBody)
	}

	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}

	det := dets[0]

	if det.ID != 1 {
		t.Errorf("expected detection ID 1, got %d", det.ID)
	}

	if det.BoundingBox == nil || det.BoundingBox.Width != 200 || det.BoundingBox.OriginY != 100 {
		t.Errorf("unexpected bounding box %+v", det.BoundingBox)
	}

	top, ok := det.TopCategory()

	if !ok || top.Label != "face" || top.Score != 0.91 {
		t.Errorf("unexpected top category %+v", top)
	}

	lm, err := det.FaceLandmarks()

	if err != nil {
		t.Fatalf("unexpected landmark error: %v", err)
	}

	if lm.At(detection.RightEar).X != 0.7 {
		t.Errorf("expected right ear x 0.7, got %f", lm.At(detection.RightEar).X)
	}

	// ids keep incrementing across calls
	dets, _ = d.DetectBytes(context.Background(), []byte("jpeg-bytes"))

	if dets[0].ID != 2 {
		t.Errorf("expected detection ID 2, got %d", dets[0].ID)
	}
}

func TestHTTPDetectorErrors(t *testing.T) {

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusServiceUnavailable, "", ErrDetectorUnavailable},
		{"invalid detection", http.StatusOK,
			`{"detections":[{"categories":[{"categoryName":"face","score":7}]}]}`,
			detection.ErrInvalidDetection},
		{"bad json", http.StatusOK, `{"detections":[`, nil},
	}

	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))

		d := NewHTTPDetector(srv.URL, time.Second)
		_, err := d.DetectBytes(context.Background(), []byte("x"))

		if err == nil {
			t.Errorf("%s: expected error", tc.name)
		} else if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}

		srv.Close()
	}
}

func TestHTTPDetectorEmptyResponse(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detections":[]}`))
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL, time.Second)
	dets, err := d.DetectBytes(context.Background(), []byte("x"))

	if err != nil || len(dets) != 0 {
		t.Errorf("expected no detections and no error, got %v, %v", dets, err)
	}

	if !d.IsAlive(context.Background()) {
		t.Error("expected detector to be alive")
	}
}

func TestHTTPDetectorEmptyFrame(t *testing.T) {

	d := NewHTTPDetector("http://127.0.0.1:0", time.Second)
	img := gocv.NewMat()
	defer img.Close()

	if _, err := d.Detect(context.Background(), img); err == nil {
		t.Error("expected error for empty frame")
	}
}

// fakeDetector returns a fixed set of detections and records if closed
type fakeDetector struct {
	dets   []detection.Detection
	closed bool
	mu     sync.Mutex
}

func (f *fakeDetector) Detect(ctx context.Context, img gocv.Mat) ([]detection.Detection, error) {
	return f.dets, nil
}

func (f *fakeDetector) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestPool(t *testing.T) {

	var created []*fakeDetector

	p, err := NewPool(3, func() (Detector, error) {
		f := &fakeDetector{dets: []detection.Detection{{ID: 5}}}
		created = append(created, f)
		return f, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Size() != 3 || len(created) != 3 {
		t.Fatalf("expected 3 detectors, got size=%d created=%d", p.Size(), len(created))
	}

	img := gocv.NewMat()
	defer img.Close()

	dets, err := p.Detect(context.Background(), img)

	if err != nil || len(dets) != 1 || dets[0].ID != 5 {
		t.Errorf("unexpected detect result %v, %v", dets, err)
	}

	// exhaust the pool then check Get honours the context
	for i := 0; i < 3; i++ {
		if _, err := p.Get(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.Get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	for _, f := range created {
		p.Return(f)
	}

	p.Close()

	for i, f := range created {
		if !f.closed {
			t.Errorf("detector %d not closed", i)
		}
	}

	if _, err := p.Get(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}

	// returning to a closed pool closes the detector instead of panicking
	late := &fakeDetector{}
	p.Return(late)

	if !late.closed {
		t.Error("expected late detector to be closed")
	}
}

func TestNewPoolError(t *testing.T) {

	var created []*fakeDetector
	n := 0

	_, err := NewPool(3, func() (Detector, error) {
		n++
		if n == 3 {
			return nil, errors.New("boom")
		}
		f := &fakeDetector{}
		created = append(created, f)
		return f, nil
	})

	if err == nil {
		t.Fatal("expected error")
	}

	for i, f := range created {
		if !f.closed {
			t.Errorf("detector %d not closed after failure", i)
		}
	}
}

func TestLoadLabels(t *testing.T) {

	file := filepath.Join(t.TempDir(), "labels.txt")
	content := "# allowed labels\nface\n\n  person  \n"

	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("error writing labels: %v", err)
	}

	labels, err := LoadLabels(file)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(labels, []string{"face", "person"}) {
		t.Errorf("unexpected labels %v", labels)
	}

	if _, err := LoadLabels(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	if got := ParseLabels(" face, ,person "); !reflect.DeepEqual(got, []string{"face", "person"}) {
		t.Errorf("unexpected parsed labels %v", got)
	}
}

// pngBytes returns an encoded blank image of the given size
func pngBytes(t *testing.T, w, h int) []byte {

	var buf bytes.Buffer

	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("error encoding png: %v", err)
	}

	return buf.Bytes()
}

func TestHTTPDetectorYOLOv5Face(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"xywh_ratio":[0.5,0.5,0.25,0.5],"conf":0.8,
			"landmarks_ratio":[0.45,0.4,0.55,0.4,0.5,0.5,0.46,0.6,0.54,0.62]}]`))
	}))
	defer srv.Close()

	format, err := ParseFormat("yolov5face")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := NewHTTPDetector(srv.URL, time.Second)
	d.SetFormat(format)

	dets, err := d.DetectBytes(context.Background(), pngBytes(t, 400, 200))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}

	box := *dets[0].BoundingBox
	expected := geometry.NewBox(150, 50, 100, 100)

	if box != expected {
		t.Errorf("expected box %+v, got %+v", expected, box)
	}

	kps := dets[0].Keypoints

	if len(kps) != 4 {
		t.Fatalf("expected eyes, nose and mouth keypoints, got %d", len(kps))
	}

	if mouth := kps[detection.Mouth]; math.Abs(mouth.X-0.5) > 1e-9 || math.Abs(mouth.Y-0.61) > 1e-9 {
		t.Errorf("expected mouth between corners, got %+v", mouth)
	}

	// no ears so orientation cannot be judged
	if _, err := dets[0].FaceLandmarks(); !errors.Is(err, detection.ErrTooFewKeypoints) {
		t.Errorf("expected ErrTooFewKeypoints, got %v", err)
	}

	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
