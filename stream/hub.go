package stream

import (
	"errors"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-facewatch/anomaly"
	"github.com/swdee/go-facewatch/geometry"
	"github.com/swdee/go-facewatch/mapper"
	"github.com/swdee/go-facewatch/monitor"
	"github.com/swdee/go-facewatch/preprocess"
	"github.com/swdee/go-facewatch/render"
	"gocv.io/x/gocv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message types pushed to event subscribers
const (
	TypeFrame   = "frame"
	TypeError   = "error"
	TypeHistory = "history"
)

// Message is the JSON document pushed to event subscribers
type Message struct {
	Type   string          `json:"type"`
	Seq    uint64          `json:"seq,omitempty"`
	Labels []anomaly.Label `json:"labels,omitempty"`
	// Anomaly is true when any label draws attention
	Anomaly bool             `json:"anomaly,omitempty"`
	Set     *render.Set      `json:"set,omitempty"`
	Diff    *render.Diff     `json:"diff,omitempty"`
	History []render.Entry   `json:"history,omitempty"`
	Stats   *monitor.Summary `json:"stats,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// subscriber receives published data until unsubscribed
type subscriber struct {
	ch chan []byte
}

// send delivers data without blocking.  For a single slot channel a pending
// stale value is replaced so slow viewers always get the latest frame
func (s *subscriber) send(data []byte) {
	for {
		select {
		case s.ch <- data:
			return
		default:
		}

		if cap(s.ch) > 1 {
			// event backlog full, drop
			return
		}

		select {
		case <-s.ch:
		default:
		}
	}
}

// Hub is a monitor sink that draws each frame's overlays onto the frame
// scaled to the displayed surface, and fans out the JPEG encoded result and
// JSON events to subscribers
type Hub struct {
	renderer *render.Renderer
	surface  *monitor.Surface
	style    render.Style
	stats    func() monitor.Summary
	log      logrus.FieldLogger
	// resizer is reused while the frame geometry is unchanged
	resizer *preprocess.Resizer
	// latest JPEG frame sent to new stream subscribers
	latest   []byte
	frameSub map[*subscriber]struct{}
	eventSub map[*subscriber]struct{}
	mu       sync.Mutex
}

// NewHub returns a hub rendering with the given renderer onto the surface
func NewHub(renderer *render.Renderer, surface *monitor.Surface,
	style render.Style, log logrus.FieldLogger) *Hub {

	return &Hub{
		renderer: renderer,
		surface:  surface,
		style:    style,
		log:      log,
		frameSub: make(map[*subscriber]struct{}),
		eventSub: make(map[*subscriber]struct{}),
	}
}

// SetStats sets the function used to report processing statistics
func (h *Hub) SetStats(stats func() monitor.Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats = stats
}

// Publish renders the frame result and pushes it to all subscribers
func (h *Hub) Publish(res *monitor.FrameResult) {

	msg := Message{
		Type: TypeFrame,
		Seq:  res.Seq,
	}

	var (
		set  render.Set
		geom mapper.FrameGeometry
	)

	if res.Err != nil {
		msg.Type = TypeError
		msg.Error = res.Err.Error()

		geom = mapper.FrameGeometry{
			Native:    geometry.NewSize(res.Image.Cols(), res.Image.Rows()),
			Displayed: h.surface.Displayed(),
			Fit:       h.surface.Fit(),
		}

		// the last rendered overlays stay on screen
		set = h.heldSet(geom)

	} else {
		var diff render.Diff
		set, diff = h.renderer.Render(res.Frame)
		geom = res.Frame.Geometry

		msg.Labels = anomaly.Labels(res.Frame.Events)
		msg.Set = &set
		msg.Diff = &diff

		for _, l := range msg.Labels {
			if l.Anomaly() {
				msg.Anomaly = true
			}
		}
	}

	if stats := h.statsFunc(); stats != nil {
		sum := stats()
		msg.Stats = &sum
	}

	if data, err := json.Marshal(msg); err != nil {
		h.log.WithError(err).Error("Error encoding event message")
	} else {
		h.broadcast(h.eventSub, data)
	}

	jpg, err := h.drawFrame(res.Image, geom, set)

	if err != nil {
		h.log.WithError(err).WithField("seq", res.Seq).Warn("Error drawing frame")
		return
	}

	h.mu.Lock()
	h.latest = jpg
	h.mu.Unlock()

	h.broadcast(h.frameSub, jpg)
}

// heldSet returns the set currently on screen when it was projected for the
// given geometry, otherwise an empty set as its overlays would be misplaced
func (h *Hub) heldSet(geom mapper.FrameGeometry) render.Set {

	cur := h.renderer.Current()
	tr, err := geom.Transform()

	if err != nil || cur.Displayed != geom.Displayed || cur.Transform != tr {
		return render.Set{}
	}

	return cur
}

// drawFrame scales the image to the displayed size, draws the overlay set on
// it and returns it encoded as a JPEG
func (h *Hub) drawFrame(img gocv.Mat, geom mapper.FrameGeometry, set render.Set) ([]byte, error) {

	if img.Empty() {
		return nil, errors.New("empty frame")
	}

	resizer, err := h.resizerFor(geom)

	if err != nil {
		return nil, err
	}

	resImg := gocv.NewMat()
	defer resImg.Close()

	resizer.Resize(img, &resImg, render.Black)
	render.Draw(&resImg, set, h.style)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, resImg)

	if err != nil {
		return nil, err
	}

	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// resizerFor returns a resizer for the geometry, replacing the cached one
// when the native or displayed size has changed
func (h *Hub) resizerFor(geom mapper.FrameGeometry) (*preprocess.Resizer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.resizer != nil && h.resizer.Geometry() == geom {
		return h.resizer, nil
	}

	r, err := preprocess.NewResizer(int(geom.Native.Width), int(geom.Native.Height),
		int(geom.Displayed.Width), int(geom.Displayed.Height), geom.Fit)

	if err != nil {
		return nil, err
	}

	if h.resizer != nil {
		h.resizer.Close()
	}

	h.resizer = r

	return r, nil
}

func (h *Hub) statsFunc() func() monitor.Summary {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stats
}

func (h *Hub) broadcast(subs map[*subscriber]struct{}, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range subs {
		s.send(data)
	}
}

// subscribeFrames registers a JPEG frame subscriber, priming it with the
// latest frame when one exists
func (h *Hub) subscribeFrames() *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &subscriber{ch: make(chan []byte, 1)}
	h.frameSub[s] = struct{}{}

	if h.latest != nil {
		s.ch <- h.latest
	}

	return s
}

// subscribeEvents registers an event subscriber
func (h *Hub) subscribeEvents() *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &subscriber{ch: make(chan []byte, 16)}
	h.eventSub[s] = struct{}{}

	return s
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.frameSub, s)
	delete(h.eventSub, s)
}

// Subscribers returns the number of frame and event subscribers
func (h *Hub) Subscribers() (frames int, events int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.frameSub), len(h.eventSub)
}

// Close releases the cached resizer
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.resizer != nil {
		h.resizer.Close()
		h.resizer = nil
	}
}

// historyMessage returns the current event history as an encoded message
func (h *Hub) historyMessage() ([]byte, error) {
	return json.Marshal(Message{
		Type:    TypeHistory,
		History: h.renderer.History().Entries(),
	})
}
