package mapper

import (
	"errors"
	"math"
	"testing"

	"github.com/swdee/go-facewatch/detection"
	"github.com/swdee/go-facewatch/geometry"
)

// almostEqual checks if two float64 values are approximately equal
func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestComputeTransform(t *testing.T) {

	tests := []struct {
		native          geometry.Size
		displayed       geometry.Size
		fit             Fit
		expectedScale   float64
		expectedOffsetX float64
		expectedOffsetY float64
	}{
		// video relatively wider than container, cover scales by height and
		// crops the sides
		{geometry.Size{Width: 1280, Height: 720}, geometry.Size{Width: 640, Height: 480}, Cover, 480.0 / 720, (640 - 1280*(480.0/720)) / 2, 0},
		{geometry.Size{Width: 1280, Height: 720}, geometry.Size{Width: 640, Height: 640}, Cover, 640.0 / 720, (640 - 1280*(640.0/720)) / 2, 0},
		// video relatively taller, cover scales by width and crops top/bottom
		{geometry.Size{Width: 720, Height: 1280}, geometry.Size{Width: 800, Height: 600}, Cover, 800.0 / 720, 0, (600 - 1280*(800.0/720)) / 2},
		// equal aspect
		{geometry.Size{Width: 1280, Height: 720}, geometry.Size{Width: 1920, Height: 1080}, Cover, 1.5, 0, 0},
		{geometry.Size{Width: 1280, Height: 720}, geometry.Size{Width: 1920, Height: 1080}, Contain, 1.5, 0, 0},
		// contain letterboxes instead
		{geometry.Size{Width: 1280, Height: 720}, geometry.Size{Width: 640, Height: 480}, Contain, 0.5, 0, 60},
		{geometry.Size{Width: 800, Height: 1000}, geometry.Size{Width: 640, Height: 640}, Contain, 0.64, 64, 0},
	}

	for _, tc := range tests {
		tr, err := ComputeFitTransform(tc.native, tc.displayed, tc.fit)

		if err != nil {
			t.Fatalf("unexpected error for %v -> %v: %v", tc.native, tc.displayed, err)
		}

		if tr.ScaleX != tr.ScaleY {
			t.Errorf("%v -> %v: scale not uniform, got %f and %f",
				tc.native, tc.displayed, tr.ScaleX, tr.ScaleY)
		}

		if !almostEqual(tr.Scale(), tc.expectedScale, 1e-9) ||
			!almostEqual(tr.OffsetX, tc.expectedOffsetX, 1e-9) ||
			!almostEqual(tr.OffsetY, tc.expectedOffsetY, 1e-9) {
			t.Errorf("%s %v -> %v: expected scale=%f offX=%f offY=%f, got scale=%f offX=%f offY=%f",
				tc.fit, tc.native, tc.displayed, tc.expectedScale, tc.expectedOffsetX,
				tc.expectedOffsetY, tr.Scale(), tr.OffsetX, tr.OffsetY)
		}
	}
}

func TestComputeTransformDefaultsToCover(t *testing.T) {

	native := geometry.Size{Width: 1280, Height: 720}
	displayed := geometry.Size{Width: 640, Height: 480}

	a, _ := ComputeTransform(native, displayed)
	b, _ := ComputeFitTransform(native, displayed, Cover)
	c, _ := FrameGeometry{Native: native, Displayed: displayed}.Transform()

	if a != b || a != c {
		t.Errorf("expected cover transform, got %+v, %+v and %+v", a, b, c)
	}
}

// TestFitCropsSingleAxis checks only one axis is ever cropped or padded and
// that cover always fills the container while contain always fits in it
func TestFitCropsSingleAxis(t *testing.T) {

	natives := []geometry.Size{{Width: 1280, Height: 720}, {Width: 640, Height: 480}, {Width: 720, Height: 1280}, {Width: 1000, Height: 1000}, {Width: 333, Height: 517}}
	displays := []geometry.Size{{Width: 640, Height: 480}, {Width: 1920, Height: 1080}, {Width: 300, Height: 900}, {Width: 500, Height: 500}, {Width: 1023, Height: 77}}

	for _, n := range natives {
		for _, d := range displays {

			cover, err := ComputeTransform(n, d)

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cover.OffsetX > 0 || cover.OffsetY > 0 {
				t.Errorf("%v -> %v: cover offset should crop, got %f,%f", n, d, cover.OffsetX, cover.OffsetY)
			}

			if cover.OffsetX != 0 && cover.OffsetY != 0 {
				t.Errorf("%v -> %v: both axes cropped %f,%f", n, d, cover.OffsetX, cover.OffsetY)
			}

			if n.Aspect() == d.Aspect() && (cover.OffsetX != 0 || cover.OffsetY != 0) {
				t.Errorf("%v -> %v: equal aspect should have no offset", n, d)
			}

			if n.Aspect() != d.Aspect() && cover.OffsetX == 0 && cover.OffsetY == 0 {
				t.Errorf("%v -> %v: differing aspect should crop one axis", n, d)
			}

			if n.Width*cover.Scale() < d.Width-1e-9 || n.Height*cover.Scale() < d.Height-1e-9 {
				t.Errorf("%v -> %v: scaled video does not cover container", n, d)
			}

			contain, err := ComputeFitTransform(n, d, Contain)

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if contain.OffsetX < 0 || contain.OffsetY < 0 {
				t.Errorf("%v -> %v: contain offset should pad, got %f,%f", n, d, contain.OffsetX, contain.OffsetY)
			}

			if n.Aspect() != d.Aspect() && contain.OffsetX == 0 && contain.OffsetY == 0 {
				t.Errorf("%v -> %v: differing aspect should pad one axis", n, d)
			}

			if n.Width*contain.Scale() > d.Width+1e-9 || n.Height*contain.Scale() > d.Height+1e-9 {
				t.Errorf("%v -> %v: scaled video overflows container", n, d)
			}
		}
	}
}

func TestComputeTransformDegenerate(t *testing.T) {

	tests := []struct {
		native    geometry.Size
		displayed geometry.Size
	}{
		{geometry.Size{Width: 0, Height: 0}, geometry.Size{Width: 640, Height: 480}},
		{geometry.Size{Width: 1280, Height: 0}, geometry.Size{Width: 640, Height: 480}},
		{geometry.Size{Width: 1280, Height: 720}, geometry.Size{Width: 0, Height: 480}},
		{geometry.Size{Width: 1280, Height: 720}, geometry.Size{Width: 640, Height: -1}},
		{geometry.Size{Width: math.NaN(), Height: 720}, geometry.Size{Width: 640, Height: 480}},
	}

	for _, tc := range tests {
		_, err := ComputeTransform(tc.native, tc.displayed)

		if !errors.Is(err, ErrDegenerateGeometry) {
			t.Errorf("%v -> %v: expected ErrDegenerateGeometry, got %v",
				tc.native, tc.displayed, err)
		}
	}
}

func TestComputeTransformIdempotent(t *testing.T) {

	g := FrameGeometry{
		Native:    geometry.Size{Width: 1280, Height: 720},
		Displayed: geometry.Size{Width: 1013, Height: 389},
	}

	a, _ := g.Transform()
	b, _ := g.Transform()

	if a != b {
		t.Errorf("expected bit identical transforms, got %+v and %+v", a, b)
	}
}

func TestProjectBox(t *testing.T) {

	tr, err := ComputeFitTransform(geometry.Size{Width: 1280, Height: 720}, geometry.Size{Width: 640, Height: 480}, Contain)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := tr.ProjectBox(geometry.NewBox(100, 100, 200, 150))
	expected := ProjectedBox{Left: 50, Top: 110, Width: 100, Height: 75}

	if got != expected {
		t.Errorf("expected %+v, got %+v", expected, got)
	}

	anchor := got.LabelAnchor()

	if anchor != (LabelAnchor{X: 50, Y: 80, Width: 90}) {
		t.Errorf("expected label anchor {50 80 90}, got %+v", anchor)
	}
}

func TestProjectBoxCover(t *testing.T) {

	// scale 0.5 by height, 1000 wide scaled video cropped to 400
	tr, err := ComputeTransform(geometry.Size{Width: 2000, Height: 1000}, geometry.Size{Width: 400, Height: 500})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.Scale() != 0.5 || tr.OffsetX != -300 || tr.OffsetY != 0 {
		t.Fatalf("expected scale=0.5 offX=-300 offY=0, got %+v", tr)
	}

	got := tr.ProjectBox(geometry.NewBox(800, 200, 400, 300))
	expected := ProjectedBox{Left: 100, Top: 100, Width: 200, Height: 150}

	if got != expected {
		t.Errorf("expected %+v, got %+v", expected, got)
	}
}

func TestProjectKeypoint(t *testing.T) {

	native := geometry.Size{Width: 2000, Height: 1000}
	tr, _ := ComputeTransform(native, geometry.Size{Width: 400, Height: 500})

	got := tr.ProjectKeypoint(detection.Keypoint{X: 0.5, Y: 0.25}, native)

	// 0.5*2000*0.5-300 = 200, 0.25*1000*0.5 = 125
	if got.X != 200 || got.Y != 125 {
		t.Errorf("expected (200,125), got (%f,%f)", got.X, got.Y)
	}

	// keypoints are normalized, boxes are not
	box := tr.ProjectBox(geometry.NewBox(0.5, 0.25, 0, 0))

	if box.Left == got.X {
		t.Error("expected keypoint and box projections to use different units")
	}
}

func TestProjectKeypointsMatchesSingle(t *testing.T) {

	native := geometry.Size{Width: 1920, Height: 1080}
	tr, _ := ComputeTransform(native, geometry.Size{Width: 700, Height: 900})

	points := []detection.Keypoint{
		{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0.25, Y: 0.75}, {X: 0.33, Y: 0.12}, {X: 0.9, Y: 0.4}, {X: 0.5, Y: 0.5},
	}

	batch := tr.ProjectKeypoints(points, native)

	if len(batch) != len(points) {
		t.Fatalf("expected %d points, got %d", len(points), len(batch))
	}

	for i, p := range points {
		single := tr.ProjectKeypoint(p, native)

		if !almostEqual(single.X, batch[i].X, 1e-9) || !almostEqual(single.Y, batch[i].Y, 1e-9) {
			t.Errorf("point %d: single %+v differs from batch %+v", i, single, batch[i])
		}
	}

	if tr.ProjectKeypoints(nil, native) != nil {
		t.Error("expected nil result for no keypoints")
	}
}

// TestProjectionScaleEquivariant doubles the display size and checks all
// projected deltas from the offset double
func TestProjectionScaleEquivariant(t *testing.T) {

	native := geometry.Size{Width: 1280, Height: 720}
	box := geometry.NewBox(120, 40, 300, 220)
	kp := detection.Keypoint{X: 0.31, Y: 0.77}

	for _, d := range []geometry.Size{{Width: 640, Height: 480}, {Width: 500, Height: 120}, {Width: 333, Height: 333}} {

		t1, _ := ComputeTransform(native, d)
		t2, _ := ComputeTransform(native, geometry.Size{Width: d.Width * 2, Height: d.Height * 2})

		b1 := t1.ProjectBox(box)
		b2 := t2.ProjectBox(box)

		if !almostEqual((b2.Left-t2.OffsetX), 2*(b1.Left-t1.OffsetX), 1e-9) ||
			!almostEqual((b2.Top-t2.OffsetY), 2*(b1.Top-t1.OffsetY), 1e-9) ||
			!almostEqual(b2.Width, 2*b1.Width, 1e-9) ||
			!almostEqual(b2.Height, 2*b1.Height, 1e-9) {
			t.Errorf("display %v: box projection not scale equivariant %+v vs %+v", d, b1, b2)
		}

		p1 := t1.ProjectKeypoint(kp, native)
		p2 := t2.ProjectKeypoint(kp, native)

		if !almostEqual(p2.X-t2.OffsetX, 2*(p1.X-t1.OffsetX), 1e-9) ||
			!almostEqual(p2.Y-t2.OffsetY, 2*(p1.Y-t1.OffsetY), 1e-9) {
			t.Errorf("display %v: keypoint projection not scale equivariant %+v vs %+v", d, p1, p2)
		}
	}
}

func TestLabelAnchorClamp(t *testing.T) {

	displayed := geometry.Size{Width: 640, Height: 480}

	tests := []struct {
		in       LabelAnchor
		expected LabelAnchor
	}{
		{LabelAnchor{50, 80, 90}, LabelAnchor{50, 80, 90}},
		{LabelAnchor{-20, -10, 90}, LabelAnchor{0, 0, 90}},
		{LabelAnchor{600, 470, 90}, LabelAnchor{550, 450, 90}},
		{LabelAnchor{10, 10, -5}, LabelAnchor{10, 10, 0}},
		{LabelAnchor{10, 10, 900}, LabelAnchor{0, 10, 640}},
	}

	for _, tc := range tests {
		if got := tc.in.Clamp(displayed); got != tc.expected {
			t.Errorf("clamp %+v: expected %+v, got %+v", tc.in, tc.expected, got)
		}
	}
}
