// Package fiterr defines the failure taxonomy shared by the fitting
// packages. Every failure a fit can produce wraps exactly one of these
// sentinels, so callers branch with errors.Is instead of parsing messages.
package fiterr

import "errors"

var (
	// ErrInsufficientData: fewer usable observations than the primitive needs.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateGeometry: the observations or inputs do not define the
	// requested shape (coincident points, parallel lines, zero-length normal).
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// ErrNumericFailure: a matrix factorisation or solve failed.
	ErrNumericFailure = errors.New("numeric failure")

	// ErrNonConvergence: the iteration cap was reached before the stop
	// criterion was met, or no damped step could lower the merit.
	ErrNonConvergence = errors.New("no convergence")

	// ErrNotApplicable: the fit cannot be applied to the given primitive.
	ErrNotApplicable = errors.New("not applicable")
)
