package monitor

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Stats records frame processing counts and the latency of recent frames
type Stats struct {
	// size is the number of recent latencies kept
	size      int
	latencies []float64
	frames    uint64
	errors    uint64
	dropped   uint64
	sync.Mutex
}

// Summary is a snapshot of the processing statistics
type Summary struct {
	Frames  uint64 `json:"frames"`
	Errors  uint64 `json:"errors"`
	Dropped uint64 `json:"dropped"`
	// MeanLatency and StdDevLatency are over the most recent frames
	MeanLatency   time.Duration `json:"meanLatency"`
	StdDevLatency time.Duration `json:"stdDevLatency"`
}

// NewStats returns statistics keeping the latency of the last size frames
func NewStats(size int) *Stats {
	return &Stats{
		size:      size,
		latencies: make([]float64, 0, size),
	}
}

func (s *Stats) addFrame(latency time.Duration) {
	s.Lock()
	defer s.Unlock()

	s.frames++
	s.latencies = append(s.latencies, float64(latency))

	if over := len(s.latencies) - s.size; over > 0 {
		s.latencies = append(s.latencies[:0], s.latencies[over:]...)
	}
}

func (s *Stats) addError() {
	s.Lock()
	defer s.Unlock()

	s.errors++
}

func (s *Stats) addDropped() {
	s.Lock()
	defer s.Unlock()

	s.dropped++
}

// Summary returns the current statistics
func (s *Stats) Summary() Summary {
	s.Lock()
	defer s.Unlock()

	sum := Summary{
		Frames:  s.frames,
		Errors:  s.errors,
		Dropped: s.dropped,
	}

	switch len(s.latencies) {
	case 0:
	case 1:
		sum.MeanLatency = time.Duration(s.latencies[0])
	default:
		mean, std := stat.MeanStdDev(s.latencies, nil)
		sum.MeanLatency = time.Duration(mean)
		sum.StdDevLatency = time.Duration(std)
	}

	return sum
}
