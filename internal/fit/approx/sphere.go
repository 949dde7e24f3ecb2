package approx

import (
	"fmt"
	"math"

	"github.com/banshee-data/geofit/internal/fit/fiterr"
	"github.com/banshee-data/geofit/internal/geometry"
	"gonum.org/v1/gonum/mat"
)

// maxMomentCondition bounds the condition number of the Drixler moment
// matrix. Beyond it the points are treated as coplanar.
const maxMomentCondition = 1e14

// Sphere is the algebraic (Drixler) sphere approximation. It solves
// x²+y²+z² + a0·x + a1·y + a2·z + a3 = 0 in centroid-reduced coordinates
// directly from second-order moments:
//
//	N = Σ u·uᵀ,  n = Σ u·(x²+y²+z²),  u = (x, y, z, 1)
//	a = -N⁻¹·n
//	r = sqrt(|0.25·(a0²+a1²+a2²) - a3|)
//	centre = -0.5·(a0, a1, a2) + centroid
func Sphere(pts []geometry.Vec3) (center geometry.Vec3, radius float64, err error) {
	if len(pts) < 4 {
		return center, 0, fmt.Errorf("%w: a sphere needs four points, got %d", fiterr.ErrDegenerateGeometry, len(pts))
	}

	c := Centroid(pts)
	var nm [4][4]float64
	var nv [4]float64
	for _, p := range pts {
		d := p.Sub(c)
		u := [4]float64{d.X, d.Y, d.Z, 1}
		s := d.Dot(d)
		for i := 0; i < 4; i++ {
			for j := i; j < 4; j++ {
				nm[i][j] += u[i] * u[j]
			}
			nv[i] += u[i] * s
		}
	}

	n := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			n.SetSym(i, j, nm[i][j])
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(n); !ok {
		return center, 0, fmt.Errorf("%w: sphere moment matrix is not positive definite", fiterr.ErrNumericFailure)
	}
	if cond := chol.Cond(); cond > maxMomentCondition {
		return center, 0, fmt.Errorf("%w: sphere moment matrix is ill-conditioned (cond %.3g)", fiterr.ErrNumericFailure, cond)
	}

	var a mat.VecDense
	if err := chol.SolveVecTo(&a, mat.NewVecDense(4, nv[:])); err != nil {
		return center, 0, fmt.Errorf("%w: sphere moment solve: %v", fiterr.ErrNumericFailure, err)
	}
	a.ScaleVec(-1, &a)

	a0, a1, a2, a3 := a.AtVec(0), a.AtVec(1), a.AtVec(2), a.AtVec(3)
	radius = math.Sqrt(math.Abs(0.25*(a0*a0+a1*a1+a2*a2) - a3))
	center = geometry.NewVec3(-0.5*a0, -0.5*a1, -0.5*a2).Add(c)
	return center, radius, nil
}
