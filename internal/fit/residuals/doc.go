// Package residuals computes the display residuals and quality figures of
// a solved primitive.
//
// Every usable observation gets a residual against the final primitive,
// whether or not it entered the adjustment; only in-use observations
// contribute to the standard deviation and the form error.
package residuals
