package approx

import (
	"fmt"

	"github.com/banshee-data/geofit/internal/fit/fiterr"
	"github.com/banshee-data/geofit/internal/geometry"
	"gonum.org/v1/gonum/mat"
)

// rankEpsilon is the relative singular-value threshold below which a
// principal direction is considered absent.
const rankEpsilon = 1e-12

// Centroid returns the mean position of pts. pts must not be empty.
func Centroid(pts []geometry.Vec3) geometry.Vec3 {
	var sum geometry.Vec3
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(pts)))
}

// Scatter returns the 3×3 scatter matrix Σ (p-c)(p-c)ᵀ of the
// centroid-reduced coordinates.
func Scatter(pts []geometry.Vec3, c geometry.Vec3) *mat.SymDense {
	var s [3][3]float64
	for _, p := range pts {
		d := p.Sub(c).Array()
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				s[i][j] += d[i] * d[j]
			}
		}
	}
	m := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			m.SetSym(i, j, s[i][j])
		}
	}
	return m
}

// Principal holds the principal-axis decomposition of a point set.
// Axes are unit vectors ordered by descending singular value.
type Principal struct {
	Centroid geometry.Vec3
	Axes     [3]geometry.Vec3
	Values   [3]float64
}

// PrincipalAxes runs an SVD on the scatter matrix of pts.
func PrincipalAxes(pts []geometry.Vec3) (Principal, error) {
	if len(pts) == 0 {
		return Principal{}, fmt.Errorf("%w: no points for principal axes", fiterr.ErrDegenerateGeometry)
	}

	c := Centroid(pts)
	var svd mat.SVD
	if ok := svd.Factorize(Scatter(pts, c), mat.SVDFull); !ok {
		return Principal{}, fmt.Errorf("%w: SVD of scatter matrix did not converge", fiterr.ErrNumericFailure)
	}

	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)

	pr := Principal{Centroid: c}
	for k := 0; k < 3; k++ {
		pr.Axes[k] = geometry.NewVec3(u.At(0, k), u.At(1, k), u.At(2, k))
		pr.Values[k] = values[k]
	}
	return pr, nil
}

// Line approximates a line through pts. The direction is the principal
// axis of the largest singular value, signed to agree with ref. A zero ref
// falls back to pts[1]-pts[0].
func Line(pts []geometry.Vec3, ref geometry.Vec3) (pos, dir geometry.Vec3, err error) {
	if len(pts) < 2 {
		return pos, dir, fmt.Errorf("%w: a line needs two points, got %d", fiterr.ErrDegenerateGeometry, len(pts))
	}

	pr, err := PrincipalAxes(pts)
	if err != nil {
		return pos, dir, err
	}
	if pr.Values[0] <= 0 {
		return pos, dir, fmt.Errorf("%w: all line points coincide", fiterr.ErrDegenerateGeometry)
	}

	dir = pr.Axes[0]
	if ref.Norm() == 0 {
		ref = pts[1].Sub(pts[0])
	}
	if ref.Norm() == 0 {
		ref = pts[len(pts)-1].Sub(pts[0])
	}
	if dir.Dot(ref) < 0 {
		dir = dir.Neg()
	}
	return pr.Centroid, dir, nil
}

// Plane approximates a plane through pts. The normal is the principal axis
// of the smallest singular value. It is signed to agree with dummy-centroid
// when a dummy point is supplied, and otherwise with the normal of the
// triangle spanned by the first three points.
func Plane(pts []geometry.Vec3, dummy *geometry.Vec3) (pos, normal geometry.Vec3, err error) {
	if len(pts) < 3 {
		return pos, normal, fmt.Errorf("%w: a plane needs three points, got %d", fiterr.ErrDegenerateGeometry, len(pts))
	}

	pr, err := PrincipalAxes(pts)
	if err != nil {
		return pos, normal, err
	}
	if pr.Values[0] <= 0 || pr.Values[1] <= rankEpsilon*pr.Values[0] {
		return pos, normal, fmt.Errorf("%w: plane points are collinear", fiterr.ErrDegenerateGeometry)
	}

	normal = pr.Axes[2]
	var ref geometry.Vec3
	if dummy != nil {
		ref = dummy.Sub(pr.Centroid)
	} else {
		ref = triangleNormal(pts)
	}
	if normal.Dot(ref) < 0 {
		normal = normal.Neg()
	}
	return pr.Centroid, normal, nil
}

// triangleNormal returns cross(p1-p0, pk-p0) for the first k >= 2 giving a
// non-zero result. A zero vector means every point lies on the p0-p1 line.
func triangleNormal(pts []geometry.Vec3) geometry.Vec3 {
	a := pts[1].Sub(pts[0])
	for k := 2; k < len(pts); k++ {
		if n := a.Cross(pts[k].Sub(pts[0])); n.Norm() > 0 {
			return n
		}
	}
	return geometry.Vec3{}
}
