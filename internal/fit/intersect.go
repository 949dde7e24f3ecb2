package fit

import (
	"fmt"
	"math"

	"github.com/banshee-data/geofit/internal/geometry"
)

// parallelTolerance is the smallest |sin| of the angle between two
// directions that still counts as an intersection.
const parallelTolerance = 1e-12

// IntersectLines writes the midpoint of the common perpendicular of a and
// b into dst and returns the length of that perpendicular. Both lines must
// be solved; parallel lines fail with ErrDegenerateGeometry.
func IntersectLines(dst *geometry.Point, a, b *geometry.Line) (float64, error) {
	if !a.IsSolved() || !b.IsSolved() {
		return 0, fmt.Errorf("%w: both lines must be solved", ErrNotApplicable)
	}

	n := a.Direction.Cross(b.Direction)
	nn := n.Dot(n)
	if nn < parallelTolerance*parallelTolerance {
		return 0, fmt.Errorf("%w: lines are parallel", ErrDegenerateGeometry)
	}

	// Closest points are a.P + s·a.D and b.P + t·b.D.
	w := b.Position.Sub(a.Position)
	s := w.Cross(b.Direction).Dot(n) / nn
	t := w.Cross(a.Direction).Dot(n) / nn
	pa := a.Position.Add(a.Direction.Scale(s))
	pb := b.Position.Add(b.Direction.Scale(t))

	dst.Position = pa.Add(pb).Scale(0.5)
	dst.MarkSolved(geometry.Statistic{Valid: true, Residuals: map[int]geometry.Residual{}})
	return pa.Distance(pb), nil
}

// IntersectLinePlane writes the intersection of line l with plane p into
// dst. A line parallel to the plane fails with ErrDegenerateGeometry.
func IntersectLinePlane(dst *geometry.Point, l *geometry.Line, p *geometry.Plane) error {
	if !l.IsSolved() || !p.IsSolved() {
		return fmt.Errorf("%w: line and plane must be solved", ErrNotApplicable)
	}

	denom := l.Direction.Dot(p.Direction)
	if math.Abs(denom) < parallelTolerance {
		return fmt.Errorf("%w: line is parallel to the plane", ErrDegenerateGeometry)
	}
	s := p.Position.Sub(l.Position).Dot(p.Direction) / denom

	dst.Position = l.Position.Add(l.Direction.Scale(s))
	dst.MarkSolved(geometry.Statistic{Valid: true, Residuals: map[int]geometry.Residual{}})
	return nil
}
