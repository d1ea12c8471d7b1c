package render

import (
	"sync"

	"github.com/swdee/go-facewatch/anomaly"
)

// Entry is a single record in the display history log
type Entry struct {
	Seq   uint64        `json:"seq"`
	Event anomaly.Event `json:"event"`
}

// History is the append only log of emitted anomaly events shown alongside
// the video.  Only the most recent entries are kept
type History struct {
	// size is the maximum number of most recent entries to keep
	size    int
	entries []Entry
	sync.Mutex
}

// NewHistory returns a new history log keeping up to size entries
func NewHistory(size int) *History {
	return &History{
		size:    size,
		entries: make([]Entry, 0, size),
	}
}

// Add appends the events of a frame to the log
func (h *History) Add(seq uint64, events []anomaly.Event) {
	h.Lock()
	defer h.Unlock()

	for _, e := range events {
		h.entries = append(h.entries, Entry{Seq: seq, Event: e})
	}

	// check if history is exceeded and drop oldest entries
	if over := len(h.entries) - h.size; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
}

// Entries returns a copy of the log, oldest first
func (h *History) Entries() []Entry {
	h.Lock()
	defer h.Unlock()

	return append([]Entry(nil), h.entries...)
}

// Len returns the number of entries in the log
func (h *History) Len() int {
	h.Lock()
	defer h.Unlock()

	return len(h.entries)
}

// Reset clears all history
func (h *History) Reset() {
	h.Lock()
	defer h.Unlock()

	h.entries = make([]Entry, 0, h.size)
}
