package render

import (
	"sync"
)

// Renderer owns the overlay set currently on screen along with the event
// history.  Each call to Render replaces the set built for the prior frame
type Renderer struct {
	current Set
	history *History
	allow   []string
	sync.Mutex
}

// NewRenderer returns a renderer keeping historySize events.  When allow is
// given only detections with those labels are drawn
func NewRenderer(historySize int, allow []string) *Renderer {
	return &Renderer{
		history: NewHistory(historySize),
		allow:   allow,
	}
}

// Render builds the overlays for the frame, clears the previous set and
// logs the frame's events to history
func (r *Renderer) Render(f Frame) (Set, Diff) {
	r.Lock()
	defer r.Unlock()

	if f.Allow == nil {
		f.Allow = r.allow
	}

	set, diff := Build(r.current, f)
	r.current = set

	r.history.Add(f.Seq, f.Events)

	return set, diff
}

// Current returns the set on screen
func (r *Renderer) Current() Set {
	r.Lock()
	defer r.Unlock()

	return r.current
}

// History returns the event history log
func (r *Renderer) History() *History {
	return r.history
}

// Clear removes the set on screen, returning the number of elements removed
func (r *Renderer) Clear() int {
	r.Lock()
	defer r.Unlock()

	n := r.current.Len()
	r.current = Set{}

	return n
}
