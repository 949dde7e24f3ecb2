package fit

import "github.com/banshee-data/geofit/internal/fit/fiterr"

// Failure kinds, matched with errors.Is.
var (
	ErrInsufficientData   = fiterr.ErrInsufficientData
	ErrDegenerateGeometry = fiterr.ErrDegenerateGeometry
	ErrNumericFailure     = fiterr.ErrNumericFailure
	ErrNonConvergence     = fiterr.ErrNonConvergence
	ErrNotApplicable      = fiterr.ErrNotApplicable
)
