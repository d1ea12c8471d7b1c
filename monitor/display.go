package monitor

import (
	"math"
	"sync"

	"github.com/swdee/go-facewatch/geometry"
	"github.com/swdee/go-facewatch/mapper"
)

// MaxDisplaySize is the largest width or height accepted from a viewer
const MaxDisplaySize = 8192

// Display provides the current size of the surface frames are shown on.
// The size may change between frames as the viewer resizes
type Display interface {
	Displayed() geometry.Size
	Fit() mapper.Fit
}

// Surface is a Display whose size is updated by the viewer
type Surface struct {
	size geometry.Size
	fit  mapper.Fit
	sync.RWMutex
}

// NewSurface returns a display surface of the given initial size
func NewSurface(size geometry.Size, fit mapper.Fit) *Surface {
	return &Surface{
		size: size,
		fit:  fit,
	}
}

// Displayed returns the current surface size
func (s *Surface) Displayed() geometry.Size {
	s.RLock()
	defer s.RUnlock()

	return s.size
}

// Fit returns the fit mode of the media on the surface
func (s *Surface) Fit() mapper.Fit {
	s.RLock()
	defer s.RUnlock()

	return s.fit
}

// Resize sets a new surface size rounded to whole pixels.  Sizes that are
// not valid or larger than MaxDisplaySize are ignored and false returned
func (s *Surface) Resize(size geometry.Size) bool {

	size = geometry.Size{
		Width:  math.Round(size.Width),
		Height: math.Round(size.Height),
	}

	if !size.Valid() || size.Width > MaxDisplaySize || size.Height > MaxDisplaySize {
		return false
	}

	s.Lock()
	defer s.Unlock()

	s.size = size

	return true
}

// ParseFit converts a CSS object-fit name into a mapper.Fit, defaulting to
// cover
func ParseFit(name string) mapper.Fit {
	if name == mapper.Contain.String() {
		return mapper.Contain
	}

	return mapper.Cover
}
