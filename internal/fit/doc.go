// Package fit is the entry point for fitting primitives to observations.
//
// A Fitter runs, per primitive: observation filtering, a closed-form
// approximation, iterative refinement (sphere and cylinder only) and the
// residual statistics, then writes the result into the primitive. Either
// every field is written or, on failure, none is.
//
// Failures wrap one of the sentinel errors below; Exec reports them through
// a monitoring.Sink instead of returning them.
package fit
