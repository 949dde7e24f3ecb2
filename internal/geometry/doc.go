// Package geometry owns the data model shared by every fitting routine.
//
// Responsibilities: 3-vector arithmetic, measured observations, the six
// fittable primitives and the statistic each primitive carries after a fit.
// Key types: Vec3, Observation, Primitive, Statistic, Residual.
//
// Dependency rule: geometry depends on nothing else in this module. The
// fitting packages under internal/fit build on it.
package geometry
