package detection

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidDetection is returned when the detector produced a detection
// that does not satisfy the data model
var ErrInvalidDetection = errors.New("invalid detection")

// Validator checks detections arriving from the detector before they are
// trusted by the classifier and renderer
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a detection Validator
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate checks every detection and returns an error wrapping
// ErrInvalidDetection identifying the first offending one
func (v *Validator) Validate(dets []Detection) error {

	for i := range dets {
		if err := v.validate.Struct(&dets[i]); err != nil {
			return fmt.Errorf("%w: index %d: %v", ErrInvalidDetection, i, err)
		}

		if !sortedByScore(dets[i].Categories) {
			return fmt.Errorf("%w: index %d: categories not ordered by score",
				ErrInvalidDetection, i)
		}
	}

	return nil
}

// sortedByScore checks categories are highest confidence first
func sortedByScore(cats []Category) bool {
	for i := 1; i < len(cats); i++ {
		if cats[i].Score > cats[i-1].Score {
			return false
		}
	}

	return true
}
