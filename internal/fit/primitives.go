package fit

import (
	"fmt"
	"math"

	"github.com/banshee-data/geofit/internal/fit/adjust"
	"github.com/banshee-data/geofit/internal/fit/approx"
	"github.com/banshee-data/geofit/internal/fit/residuals"
	"github.com/banshee-data/geofit/internal/geometry"
	"github.com/banshee-data/geofit/internal/monitoring"
)

// FitPoint sets the point to the centroid of the in-use observations.
func (f *Fitter) FitPoint(dst *geometry.Point, in Inputs) error {
	set, err := f.filter(geometry.KindPoint, in.Points)
	if err != nil {
		return err
	}
	pos := approx.Centroid(geometry.Positions(set.InUse))

	st := statistic(geometry.KindPoint, residuals.PointSurface{Position: pos}, set)
	dst.Position = pos
	dst.MarkSolved(st)
	return nil
}

// FitLine fits a line through the in-use observations. The direction points
// from the first towards the second observation.
func (f *Fitter) FitLine(dst *geometry.Line, in Inputs) error {
	set, err := f.filter(geometry.KindLine, in.Points)
	if err != nil {
		return err
	}
	pos, dir, err := approx.Line(geometry.Positions(set.InUse), leadingDirection(set.AllUsable))
	if err != nil {
		return err
	}
	if f.opts.InverseSense {
		dir = dir.Neg()
	}

	st := statistic(geometry.KindLine, residuals.LineSurface{Position: pos, Direction: dir}, set)
	dst.Position, dst.Direction = pos, dir
	dst.MarkSolved(st)
	return nil
}

// FitPlane fits a plane through the in-use observations. The normal is
// rectified towards the first valid dummy point when one is given, and
// the plane is then moved by ShiftOffset along the normal.
func (f *Fitter) FitPlane(dst *geometry.Plane, in Inputs) error {
	set, err := f.filter(geometry.KindPlane, in.Points)
	if err != nil {
		return err
	}
	pos, normal, err := approx.Plane(geometry.Positions(set.InUse), firstValid(in.DummyPoints))
	if err != nil {
		return err
	}
	if f.opts.InverseSense {
		normal = normal.Neg()
	}
	pos = pos.Add(normal.Scale(f.opts.ShiftOffset))

	st := statistic(geometry.KindPlane, residuals.PlaneSurface{Position: pos, Direction: normal}, set)
	dst.Position, dst.Direction = pos, normal
	dst.MarkSolved(st)
	return nil
}

// FitCircle fits a circle in the best-fit plane of the in-use observations.
func (f *Fitter) FitCircle(dst *geometry.Circle, in Inputs) error {
	set, err := f.filter(geometry.KindCircle, in.Points)
	if err != nil {
		return err
	}
	c, err := approx.CircleInPlane(geometry.Positions(set.InUse), firstValid(in.DummyPoints))
	if err != nil {
		return err
	}
	if f.opts.InverseSense {
		c.Normal = c.Normal.Neg()
	}

	surface := residuals.CircleSurface{Position: c.Center, Direction: c.Normal, Radius: c.Radius}
	st := statistic(geometry.KindCircle, surface, set)
	dst.Position, dst.Direction, dst.Radius = c.Center, c.Normal, c.Radius
	dst.MarkSolved(st)
	return nil
}

// FitSphere seeds the refiner with the algebraic sphere and refines centre
// and radius.
func (f *Fitter) FitSphere(dst *geometry.Sphere, in Inputs) error {
	set, err := f.filter(geometry.KindSphere, in.Points)
	if err != nil {
		return err
	}
	pts := geometry.Positions(set.InUse)

	center, radius, err := approx.Sphere(pts)
	if err != nil {
		return err
	}
	res, err := adjust.Refine(adjust.SphereModel{}, adjust.SphereParams(center, radius), pts,
		f.refineOptions(f.opts.SphereMaxIterations))
	if err != nil {
		return fmt.Errorf("sphere refinement: %w", err)
	}
	center = geometry.NewVec3(res.Params[0], res.Params[1], res.Params[2])
	radius = math.Abs(res.Params[3])
	monitoring.Tracef("fit: sphere refined in %d iterations, merit=%.6g", res.Iterations, res.Merit)

	st := statistic(geometry.KindSphere, residuals.SphereSurface{Position: center, Radius: radius}, set)
	dst.Position, dst.Radius = center, radius
	dst.MarkSolved(st)
	return nil
}

// FitCylinder generates axis candidates with the configured approximation,
// seeds the refiner with the best one and refines axis and radius in the
// candidate's rotated frame. Position is the axis point nearest the
// centroid of the in-use observations.
func (f *Fitter) FitCylinder(dst *geometry.Cylinder, in Inputs) error {
	set, err := f.filter(geometry.KindCylinder, in.Points)
	if err != nil {
		return err
	}
	pts := geometry.Positions(set.InUse)

	cands, err := approx.CylinderCandidates(approx.CylinderInput{
		Points:      pts,
		DummyPoints: validPositions(in.DummyPoints),
		Direction:   in.Direction,
	}, f.opts.Approximation)
	if err != nil {
		return err
	}
	best := approx.Best(cands)
	if monitoring.Enabled(monitoring.StreamTrace) {
		for _, c := range cands {
			monitoring.Tracef("fit: cylinder candidate %q r=%.6g stdev=%.3g", c.Label, c.Radius, c.Stdev)
		}
	}

	frame := best.Rotation()
	rotated := make([]geometry.Vec3, len(pts))
	for i, p := range pts {
		rotated[i] = frame.Apply(p)
	}

	res, err := adjust.Refine(adjust.CylinderModel{}, adjust.CylinderParams(best.CenterX, best.CenterY, best.Radius),
		rotated, f.refineOptions(f.opts.CylinderMaxIterations))
	if err != nil {
		return fmt.Errorf("cylinder refinement from %q: %w", best.Label, err)
	}
	monitoring.Tracef("fit: cylinder refined in %d iterations, merit=%.6g", res.Iterations, res.Merit)

	axisPoint, axisDir := adjust.CylinderAxis(res.Params)
	axisPoint, axisDir = frame.Inverse(axisPoint), frame.Inverse(axisDir)
	centroid := approx.Centroid(pts)
	pos := axisPoint.Add(axisDir.Scale(centroid.Sub(axisPoint).Dot(axisDir)))
	radius := math.Abs(res.Params[4])

	surface := residuals.CylinderSurface{Position: pos, Direction: axisDir, Radius: radius}
	st := statistic(geometry.KindCylinder, surface, set)
	dst.Position, dst.Direction, dst.Radius = pos, axisDir, radius
	dst.MarkSolved(st)
	return nil
}
