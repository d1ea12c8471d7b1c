package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-facewatch/anomaly"
	"github.com/swdee/go-facewatch/detection"
	"github.com/swdee/go-facewatch/geometry"
	"github.com/swdee/go-facewatch/internal/log"
	"github.com/swdee/go-facewatch/mapper"
	"github.com/swdee/go-facewatch/render"
	"gocv.io/x/gocv"
)

var (
	// ErrDetect wraps errors returned by the detector for a frame
	ErrDetect = errors.New("detection failed")
	// ErrSkipped is returned by Process when a frame was not processed
	ErrSkipped = errors.New("frame skipped")
)

// Detector runs face detection on a still frame
type Detector interface {
	Detect(ctx context.Context, img gocv.Mat) ([]detection.Detection, error)
}

// Sink receives the result of every processed frame.  Publish is called from
// a single goroutine and must not retain FrameResult.Image after returning
type Sink interface {
	Publish(res *FrameResult)
}

// FrameResult is the outcome of processing a single frame
type FrameResult struct {
	// Seq is the frame sequence number, results may arrive out of order
	Seq uint64
	// Captured is when the frame was read from the source
	Captured time.Time
	// Image is the frame at native resolution
	Image gocv.Mat
	// Frame holds the detections, transform and events for rendering.  It is
	// only complete when Err is nil
	Frame render.Frame
	// Latency is the time taken to detect, map and classify the frame
	Latency time.Duration
	Err     error
}

// Close releases the frame image
func (r *FrameResult) Close() {
	r.Image.Close()
}

// Options configure a Monitor
type Options struct {
	// Interval is the cadence frames are sampled at
	Interval time.Duration
	// MaxInFlight is the number of frames processed concurrently before
	// further frames are dropped
	MaxInFlight int
	// Classifier labels each frame, a default classifier is used when nil
	Classifier *anomaly.Classifier
	Log        logrus.FieldLogger
}

// Monitor samples frames from a live video source, runs detection on each
// and maps and classifies the results for display
type Monitor struct {
	source     Source
	detector   Detector
	display    Display
	sink       Sink
	classifier *anomaly.Classifier
	interval   time.Duration
	maxFlight  int
	log        *logrus.Entry
	sessionID  string
	stats      *Stats
	seq        uint64
	inFlight   int
	mu         sync.Mutex
}

// New returns a Monitor reading from source and publishing to sink
func New(source Source, detector Detector, display Display, sink Sink,
	opts Options) *Monitor {

	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	if opts.MaxInFlight < 1 {
		opts.MaxInFlight = 4
	}

	if opts.Classifier == nil {
		opts.Classifier = anomaly.NewClassifier()
	}

	if opts.Log == nil {
		opts.Log = log.Logger()
	}

	entry, sessionID := log.WithSession(opts.Log)

	return &Monitor{
		source:     source,
		detector:   detector,
		display:    display,
		sink:       sink,
		classifier: opts.Classifier,
		interval:   opts.Interval,
		maxFlight:  opts.MaxInFlight,
		log:        entry,
		sessionID:  sessionID,
		stats:      NewStats(100),
	}
}

// SessionID returns the ID tagged on every log entry of the monitor
func (m *Monitor) SessionID() string {
	return m.sessionID
}

// AddSink adds a further sink results are published to.  It must be called
// before Run
func (m *Monitor) AddSink(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sink = MultiSink{m.sink, s}
}

// Stats returns the processing statistics
func (m *Monitor) Stats() *Stats {
	return m.stats
}

// Run samples a frame every interval until the context is done.  Each frame
// is processed in its own goroutine and results are published in the order
// they complete
func (m *Monitor) Run(ctx context.Context) error {

	m.log.WithField("interval", m.interval).Info("Monitoring started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// in flight frames are bounded by maxFlight so sends never block
	recvFrame := make(chan *FrameResult, m.maxFlight)

	var wg sync.WaitGroup

loop:
	for {
		select {
		case <-ctx.Done():
			break loop

		case <-ticker.C:
			img, seq, err := m.capture()

			if err != nil {
				m.stats.addError()
				m.log.WithError(err).Warn("Error reading frame")
				continue
			}

			if !m.acquire() {
				img.Close()
				m.stats.addDropped()
				m.log.WithField("seq", seq).Debug("Frame dropped, too many in flight")
				continue
			}

			wg.Add(1)

			go func() {
				defer wg.Done()
				recvFrame <- m.ProcessFrame(ctx, img, seq)
			}()

		case res := <-recvFrame:
			m.publish(res)
		}
	}

	// wait for frames in progress, their results are discarded
	wg.Wait()
	close(recvFrame)

	for res := range recvFrame {
		m.release()
		res.Close()
	}

	m.log.Info("Monitoring stopped")

	return ctx.Err()
}

// capture reads the next frame from the source
func (m *Monitor) capture() (gocv.Mat, uint64, error) {

	img := gocv.NewMat()

	if err := m.source.Read(&img); err != nil {
		img.Close()
		return gocv.Mat{}, 0, err
	}

	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	return img, seq, nil
}

// acquire reserves a processing slot
func (m *Monitor) acquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlight >= m.maxFlight {
		return false
	}

	m.inFlight++

	return true
}

func (m *Monitor) release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inFlight--
}

// publish hands a result to the sink then releases it
func (m *Monitor) publish(res *FrameResult) {

	defer res.Close()
	m.release()

	entry := m.log.WithFields(log.Fields{
		"seq":     res.Seq,
		"latency": res.Latency,
	})

	if res.Err != nil {
		m.stats.addError()
		entry.WithError(res.Err).Warn("Error processing frame")
	} else {
		m.stats.addFrame(res.Latency)
		entry.WithField("labels", anomaly.Labels(res.Frame.Events)).Debug("Frame classified")
	}

	m.sink.Publish(res)
}

// ProcessFrame runs detection on the frame, then maps and classifies the
// detections.  The display size is sampled once so all results of the frame
// share the same geometry.  On a detector error neither the mapping nor the
// classification is run, and a frame with degenerate geometry is skipped
func (m *Monitor) ProcessFrame(ctx context.Context, img gocv.Mat, seq uint64) *FrameResult {

	start := time.Now()

	res := &FrameResult{
		Seq:      seq,
		Captured: start,
		Image:    img,
	}

	defer func() {
		res.Latency = time.Since(start)
	}()

	dets, err := m.detector.Detect(ctx, img)

	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrDetect, err)
		return res
	}

	geom := mapper.FrameGeometry{
		Native:    geometry.NewSize(img.Cols(), img.Rows()),
		Displayed: m.display.Displayed(),
		Fit:       m.display.Fit(),
	}

	tr, err := geom.Transform()

	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrSkipped, err)
		return res
	}

	res.Frame = render.Frame{
		Seq:        seq,
		Geometry:   geom,
		Transform:  tr,
		Detections: dets,
		Events:     m.classifier.Classify(dets),
	}

	return res
}
