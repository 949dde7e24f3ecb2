package approx

import (
	"fmt"
	"math"

	"github.com/banshee-data/geofit/internal/fit/fiterr"
	"github.com/banshee-data/geofit/internal/geometry"
)

// angleTolerance is the agreement required between the asin and acos
// branches when recovering an angle from its sine and cosine.
const angleTolerance = 0.001

// Rotation is R = Ry(Beta)·Rx(Alpha): a rotation about X by Alpha followed
// by a rotation about Y by Beta. RotationToZ picks the angles so that a
// given axis is mapped onto +Z.
type Rotation struct {
	Alpha float64
	Beta  float64
}

// Rows returns the three rows of R.
func (r Rotation) Rows() [3]geometry.Vec3 {
	sa, ca := math.Sincos(r.Alpha)
	sb, cb := math.Sincos(r.Beta)
	return [3]geometry.Vec3{
		{X: cb, Y: sb * sa, Z: sb * ca},
		{X: 0, Y: ca, Z: -sa},
		{X: -sb, Y: cb * sa, Z: cb * ca},
	}
}

// Apply returns R·p.
func (r Rotation) Apply(p geometry.Vec3) geometry.Vec3 {
	rows := r.Rows()
	return geometry.NewVec3(rows[0].Dot(p), rows[1].Dot(p), rows[2].Dot(p))
}

// Inverse returns Rᵀ·q.
func (r Rotation) Inverse(q geometry.Vec3) geometry.Vec3 {
	rows := r.Rows()
	return rows[0].Scale(q.X).Add(rows[1].Scale(q.Y)).Add(rows[2].Scale(q.Z))
}

// Axis returns the direction that R maps onto +Z, i.e. Rᵀ·ẑ.
func (r Rotation) Axis() geometry.Vec3 {
	return r.Rows()[2]
}

// RotationToZ returns the rotation mapping axis onto +Z. Beta is chosen in
// [-π/2, π/2] so that the X rotation alone resolves the remaining sign.
func RotationToZ(axis geometry.Vec3) (Rotation, error) {
	d, n := axis.Normalize()
	if n == 0 || !d.IsFinite() {
		return Rotation{}, fmt.Errorf("%w: zero-length axis", fiterr.ErrDegenerateGeometry)
	}

	// Third row of R is (-sinβ, cosβ·sinα, cosβ·cosα) and must equal d.
	cb := math.Sqrt(math.Max(0, 1-d.X*d.X))
	beta := resolveAngle(-d.X, cb)
	if cb < 1e-12 {
		return Rotation{Alpha: 0, Beta: beta}, nil
	}
	alpha := resolveAngle(d.Y/cb, d.Z/cb)
	return Rotation{Alpha: alpha, Beta: beta}, nil
}

// resolveAngle recovers θ in (-π, π] from sinθ and cosθ. asin and acos each
// give two candidate angles; the pair that agrees within angleTolerance is
// taken, reporting whichever branch is better conditioned. atan2 is the
// fallback when rounding leaves no agreeing pair.
func resolveAngle(s, c float64) float64 {
	s = math.Max(-1, math.Min(1, s))
	c = math.Max(-1, math.Min(1, c))

	as := math.Asin(s)
	ac := math.Acos(c)
	fromSin := [2]float64{as, wrapAngle(math.Pi - as)}
	fromCos := [2]float64{ac, -ac}
	for _, a := range fromSin {
		for _, b := range fromCos {
			if math.Abs(wrapAngle(a-b)) < angleTolerance {
				if math.Abs(s) <= math.Abs(c) {
					return a
				}
				return b
			}
		}
	}
	return math.Atan2(s, c)
}

// wrapAngle maps a into (-π, π].
func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
