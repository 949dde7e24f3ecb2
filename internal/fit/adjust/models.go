package adjust

import (
	"math"

	"github.com/banshee-data/geofit/internal/fit/approx"
	"github.com/banshee-data/geofit/internal/geometry"
)

// degenerateRadial is the distance below which a point is treated as lying
// on the centre (sphere) or axis (cylinder); an arbitrary unit direction is
// used there.
const degenerateRadial = 1e-12

// SphereModel is f = |p - c| - r with parameters (cx, cy, cz, r).
type SphereModel struct{}

// NumParams implements Model.
func (SphereModel) NumParams() int { return 4 }

// Condition implements Model.
func (SphereModel) Condition(params []float64, p geometry.Vec3, dParams []float64) (float64, geometry.Vec3) {
	c := geometry.NewVec3(params[0], params[1], params[2])
	u, rho := p.Sub(c).Normalize()
	if rho < degenerateRadial {
		u = geometry.Vec3{Z: 1}
	}
	dParams[0], dParams[1], dParams[2] = -u.X, -u.Y, -u.Z
	dParams[3] = -1
	return rho - params[3], u
}

// SphereParams packs a centre and radius into a parameter vector.
func SphereParams(center geometry.Vec3, radius float64) []float64 {
	return []float64{center.X, center.Y, center.Z, radius}
}

// CylinderModel fits a cylinder to points already rotated so the axis is
// close to +Z. Parameters are (x0, y0, α, β, r): after the extra rotation
// R(α, β) the axis is parallel to Z through (x0, y0), and
//
//	f = sqrt((qx-x0)² + (qy-y0)²) - r,  q = R(α, β)·p
//
// Starting α and β at zero keeps the parameterisation far from its
// singularities.
type CylinderModel struct{}

// NumParams implements Model.
func (CylinderModel) NumParams() int { return 5 }

// Condition implements Model.
func (CylinderModel) Condition(params []float64, p geometry.Vec3, dParams []float64) (float64, geometry.Vec3) {
	x0, y0, alpha, beta, r := params[0], params[1], params[2], params[3], params[4]
	rot := approx.Rotation{Alpha: alpha, Beta: beta}
	rows := rot.Rows()
	q := geometry.NewVec3(rows[0].Dot(p), rows[1].Dot(p), rows[2].Dot(p))

	sa, ca := math.Sincos(alpha)
	sb := math.Sin(beta)
	// u = Rx(α)·p; only its Y and Z components appear in the derivatives.
	u2 := ca*p.Y - sa*p.Z
	u3 := sa*p.Y + ca*p.Z

	dx, dy := q.X-x0, q.Y-y0
	rho := math.Hypot(dx, dy)
	ex, ey := 1.0, 0.0
	if rho >= degenerateRadial {
		ex, ey = dx/rho, dy/rho
	}

	dParams[0] = -ex
	dParams[1] = -ey
	dParams[2] = ex*sb*u2 - ey*u3
	dParams[3] = ex * q.Z
	dParams[4] = -1

	dPoint := rows[0].Scale(ex).Add(rows[1].Scale(ey))
	return rho - r, dPoint
}

// CylinderParams packs a start vector for CylinderModel.
func CylinderParams(x0, y0, r float64) []float64 {
	return []float64{x0, y0, 0, 0, r}
}

// CylinderAxis returns a point on the fitted axis and its unit direction,
// both in the frame the model was evaluated in. The point is the foot of
// the axis nearest to height zero in the refined frame.
func CylinderAxis(params []float64) (point, dir geometry.Vec3) {
	rot := approx.Rotation{Alpha: params[2], Beta: params[3]}
	return rot.Inverse(geometry.NewVec3(params[0], params[1], 0)), rot.Axis()
}
