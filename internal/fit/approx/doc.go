// Package approx computes closed-form initial parameters for every
// primitive.
//
// Responsibilities: centroid and principal-axis analysis (SVD of the
// scatter matrix) for lines, planes and circles; the algebraic Drixler
// solve for spheres; algebraic 2-D circle fits; and the cylinder
// axis-guessing strategies that seed the iterative refiner.
//
// Dependency rule: approx depends on geometry and fiterr only. Linear
// algebra goes through gonum.org/v1/gonum/mat.
package approx
