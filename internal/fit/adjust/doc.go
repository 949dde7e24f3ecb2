// Package adjust refines primitive parameters by iterative nonlinear
// least squares.
//
// Each observation contributes one condition equation f(x, l+v) = 0
// linking the parameters x, the measured point l and its correction v.
// Every iteration linearises the conditions, assembles the combined
// normal-equation system, eliminates the correction block and solves for
// the parameter correction. Steps are damped with an Armijo backtracking
// rule. The loop stops when the squared norm of the parameter correction
// drops below a threshold, or fails once the iteration cap is reached.
//
// Models: SphereModel (centre, radius) and CylinderModel (axis offset and
// tilt in a pre-rotated frame, radius).
package adjust
