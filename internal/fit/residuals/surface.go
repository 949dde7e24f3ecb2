package residuals

import (
	"fmt"
	"math"

	"github.com/banshee-data/geofit/internal/fit/fiterr"
	"github.com/banshee-data/geofit/internal/geometry"
)

// Surface is anything an observation can be projected onto.
type Surface interface {
	// Foot returns the point of the surface nearest p and the distance
	// from p to it. The distance is signed (positive outside, or along
	// the normal) when the surface has two sides.
	Foot(p geometry.Vec3) (foot geometry.Vec3, distance float64)
}

// PointSurface is a single position.
type PointSurface struct{ Position geometry.Vec3 }

func (s PointSurface) Foot(p geometry.Vec3) (geometry.Vec3, float64) {
	return s.Position, p.Distance(s.Position)
}

// LineSurface is an infinite line; Direction must be a unit vector.
type LineSurface struct{ Position, Direction geometry.Vec3 }

func (s LineSurface) Foot(p geometry.Vec3) (geometry.Vec3, float64) {
	foot := s.Position.Add(s.Direction.Scale(p.Sub(s.Position).Dot(s.Direction)))
	return foot, p.Distance(foot)
}

// PlaneSurface is a plane with unit normal Direction.
type PlaneSurface struct{ Position, Direction geometry.Vec3 }

func (s PlaneSurface) Foot(p geometry.Vec3) (geometry.Vec3, float64) {
	d := p.Sub(s.Position).Dot(s.Direction)
	return p.Sub(s.Direction.Scale(d)), d
}

// CircleSurface is a circle in 3-D. The distance is measured to the
// nearest point of the curve and carries the sign of the in-plane radial
// offset.
type CircleSurface struct {
	Position  geometry.Vec3
	Direction geometry.Vec3
	Radius    float64
}

func (s CircleSurface) Foot(p geometry.Vec3) (geometry.Vec3, float64) {
	rel := p.Sub(s.Position)
	inPlane := rel.Sub(s.Direction.Scale(rel.Dot(s.Direction)))
	u, rho := inPlane.Normalize()
	if rho == 0 {
		u = s.Direction.Perpendicular()
	}
	foot := s.Position.Add(u.Scale(s.Radius))
	return foot, math.Copysign(p.Distance(foot), rho-s.Radius)
}

// SphereSurface is a sphere centred on Position.
type SphereSurface struct {
	Position geometry.Vec3
	Radius   float64
}

func (s SphereSurface) Foot(p geometry.Vec3) (geometry.Vec3, float64) {
	u, rho := p.Sub(s.Position).Normalize()
	if rho == 0 {
		u = geometry.Vec3{Z: 1}
	}
	return s.Position.Add(u.Scale(s.Radius)), rho - s.Radius
}

// CylinderSurface is an infinite cylinder about the axis through Position
// along the unit Direction.
type CylinderSurface struct {
	Position  geometry.Vec3
	Direction geometry.Vec3
	Radius    float64
}

func (s CylinderSurface) Foot(p geometry.Vec3) (geometry.Vec3, float64) {
	rel := p.Sub(s.Position)
	onAxis := s.Position.Add(s.Direction.Scale(rel.Dot(s.Direction)))
	u, rho := p.Sub(onAxis).Normalize()
	if rho == 0 {
		u = s.Direction.Perpendicular()
	}
	return onAxis.Add(u.Scale(s.Radius)), rho - s.Radius
}

// SurfaceOf returns the surface of a primitive from its current fields.
func SurfaceOf(p geometry.Primitive) (Surface, error) {
	switch v := p.(type) {
	case *geometry.Point:
		return PointSurface{Position: v.Position}, nil
	case *geometry.Line:
		return LineSurface{Position: v.Position, Direction: v.Direction}, nil
	case *geometry.Plane:
		return PlaneSurface{Position: v.Position, Direction: v.Direction}, nil
	case *geometry.Circle:
		return CircleSurface{Position: v.Position, Direction: v.Direction, Radius: v.Radius}, nil
	case *geometry.Sphere:
		return SphereSurface{Position: v.Position, Radius: v.Radius}, nil
	case *geometry.Cylinder:
		return CylinderSurface{Position: v.Position, Direction: v.Direction, Radius: v.Radius}, nil
	default:
		return nil, fmt.Errorf("%w: no surface for %T", fiterr.ErrNotApplicable, p)
	}
}
