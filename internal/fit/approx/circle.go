package approx

import (
	"fmt"
	"math"

	"github.com/banshee-data/geofit/internal/fit/fiterr"
	"github.com/banshee-data/geofit/internal/geometry"
	"gonum.org/v1/gonum/mat"
)

// Circle2D is an algebraic circle fit in a plane.
type Circle2D struct {
	CenterX float64
	CenterY float64
	Radius  float64
	// Stdev is sqrt(Σ(ρ-r)²/(n-3)), 0 when n == 3.
	Stdev float64
}

// FitCircle2D fits x²+y²+D·x+E·y+F = 0 to the points (xs[i], ys[i]) by
// linear least squares. Coordinates are centre-reduced before the solve.
func FitCircle2D(xs, ys []float64) (Circle2D, error) {
	n := len(xs)
	if n != len(ys) {
		return Circle2D{}, fmt.Errorf("%w: %d x values but %d y values", fiterr.ErrDegenerateGeometry, n, len(ys))
	}
	if n < 3 {
		return Circle2D{}, fmt.Errorf("%w: a circle needs three points, got %d", fiterr.ErrDegenerateGeometry, n)
	}

	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i := range xs {
		x, y := xs[i]-mx, ys[i]-my
		a.Set(i, 0, x)
		a.Set(i, 1, y)
		a.Set(i, 2, 1)
		b.SetVec(i, -(x*x + y*y))
	}

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, b); err != nil {
		return Circle2D{}, fmt.Errorf("%w: circle normal equations: %v", fiterr.ErrNumericFailure, err)
	}

	d, e, f := sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)
	cx, cy := -d/2, -e/2
	r2 := cx*cx + cy*cy - f
	if !(r2 > 0) || math.IsInf(r2, 0) {
		return Circle2D{}, fmt.Errorf("%w: circle fit gave non-positive squared radius %g", fiterr.ErrDegenerateGeometry, r2)
	}
	r := math.Sqrt(r2)

	var sum float64
	for i := range xs {
		v := math.Hypot(xs[i]-mx-cx, ys[i]-my-cy) - r
		sum += v * v
	}
	var stdev float64
	if n > 3 {
		stdev = math.Sqrt(sum / float64(n-3))
	}

	return Circle2D{CenterX: cx + mx, CenterY: cy + my, Radius: r, Stdev: stdev}, nil
}

// Circle3D is a circle approximation in space.
type Circle3D struct {
	Center geometry.Vec3
	Normal geometry.Vec3
	Radius float64
	Stdev  float64
}

// CircleInPlane approximates a circle through pts: the plane comes from
// Plane (with the same normal rectification), then the points are
// projected into an in-plane basis and fitted with FitCircle2D.
func CircleInPlane(pts []geometry.Vec3, dummy *geometry.Vec3) (Circle3D, error) {
	origin, normal, err := Plane(pts, dummy)
	if err != nil {
		return Circle3D{}, err
	}

	e1 := normal.Perpendicular()
	e2 := normal.Cross(e1)
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		d := p.Sub(origin)
		xs[i] = d.Dot(e1)
		ys[i] = d.Dot(e2)
	}

	c, err := FitCircle2D(xs, ys)
	if err != nil {
		return Circle3D{}, err
	}

	center := origin.Add(e1.Scale(c.CenterX)).Add(e2.Scale(c.CenterY))
	return Circle3D{Center: center, Normal: normal, Radius: c.Radius, Stdev: c.Stdev}, nil
}
