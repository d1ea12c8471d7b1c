package facewatch

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/swdee/go-facewatch/detection"
	"gocv.io/x/gocv"
)

// ErrPoolClosed is returned when detecting on a closed pool
var ErrPoolClosed = errors.New("detector pool closed")

// Pool is a simple pool of detectors so frames that overlap in time can be
// processed in parallel
type Pool struct {
	// pool of detectors
	detectors chan Detector
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a new detector pool, calling newDetector for each member
func NewPool(size int, newDetector func() (Detector, error)) (*Pool, error) {

	if size < 1 {
		size = 1
	}

	p := &Pool{
		detectors: make(chan Detector, size),
		size:      size,
	}

	for i := 0; i < size; i++ {
		d, err := newDetector()

		if err != nil {
			// close any instances that may have been created before receiving
			// the error
			p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(d)
	}

	return p, nil
}

// Get a detector from the pool, waiting until one is free or the context
// is done
func (p *Pool) Get(ctx context.Context) (Detector, error) {
	select {
	case d, ok := <-p.detectors:
		if !ok {
			return nil, ErrPoolClosed
		}
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Return a detector to the pool
func (p *Pool) Return(d Detector) {
	defer func() {
		// pool closed while detector was in use
		if recover() != nil {
			closeDetector(d)
		}
	}()

	select {
	case p.detectors <- d:
	default:
		// pool is full
	}
}

// Size returns the number of detectors in the pool
func (p *Pool) Size() int {
	return p.size
}

// Detect runs detection using the next free detector in the pool
func (p *Pool) Detect(ctx context.Context, img gocv.Mat) ([]detection.Detection, error) {

	d, err := p.Get(ctx)

	if err != nil {
		return nil, err
	}

	defer p.Return(d)

	return d.Detect(ctx, img)
}

// Close the pool and all detectors in it
func (p *Pool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.detectors)

		// close all detectors
		for next := range p.detectors {
			closeDetector(next)
		}
	})
}

// closeDetector closes the detector if it holds resources
func closeDetector(d Detector) {
	if c, ok := d.(io.Closer); ok {
		_ = c.Close()
	}
}
