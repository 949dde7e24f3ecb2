// Package testutil provides shared test utilities and fixtures.
//
// This package centralises synthetic observation generators and tolerance
// assertions used across the fitting package tests.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/geofit/internal/geometry"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertVecInDelta checks each component of got against want.
func AssertVecInDelta(t *testing.T, want, got geometry.Vec3, delta float64) {
	t.Helper()
	if math.Abs(want.X-got.X) > delta || math.Abs(want.Y-got.Y) > delta || math.Abs(want.Z-got.Z) > delta {
		t.Errorf("vector = %+v, want %+v (±%g)", got, want, delta)
	}
}

// AssertParallel checks that two directions agree up to sign.
func AssertParallel(t *testing.T, want, got geometry.Vec3, delta float64) {
	t.Helper()
	w, _ := want.Normalize()
	g, _ := got.Normalize()
	if d := 1 - math.Abs(w.Dot(g)); d > delta {
		t.Errorf("direction %+v is not parallel to %+v (1-|cos| = %g)", got, want, d)
	}
}

// Observations wraps positions as valid, opted-in observations with IDs
// starting at 1.
func Observations(pts []geometry.Vec3) []geometry.Observation {
	obs := make([]geometry.Observation, len(pts))
	for i, p := range pts {
		obs[i] = geometry.NewObservation(i+1, p)
	}
	return obs
}

// IDs returns the observation IDs in input order.
func IDs(obs []geometry.Observation) []int {
	ids := make([]int, len(obs))
	for i, o := range obs {
		ids[i] = o.ID
	}
	return ids
}

// Reversed returns a reversed copy of obs.
func Reversed(obs []geometry.Observation) []geometry.Observation {
	out := make([]geometry.Observation, len(obs))
	for i, o := range obs {
		out[len(obs)-1-i] = o
	}
	return out
}

// SpherePoints returns points on a sphere at the given polar/azimuth
// angle pairs (radians). offsets, when non-nil, are added to the radius of
// the matching point.
func SpherePoints(center geometry.Vec3, radius float64, angles [][2]float64, offsets []float64) []geometry.Vec3 {
	pts := make([]geometry.Vec3, len(angles))
	for i, a := range angles {
		r := radius
		if offsets != nil {
			r += offsets[i]
		}
		st, ct := math.Sincos(a[0])
		sp, cp := math.Sincos(a[1])
		pts[i] = center.Add(geometry.NewVec3(r*st*cp, r*st*sp, r*ct))
	}
	return pts
}

// OctahedronAngles are the six axis directions as polar/azimuth pairs.
var OctahedronAngles = [][2]float64{
	{0, 0},
	{math.Pi, 0},
	{math.Pi / 2, 0},
	{math.Pi / 2, math.Pi / 2},
	{math.Pi / 2, math.Pi},
	{math.Pi / 2, 3 * math.Pi / 2},
}

// CylinderPoints places one ring of points per height around a cylinder.
// Ring k of each height sits at angle k·2π/perRing; offsets[k] (when
// non-nil) is added to the radius of the k-th point of every ring.
func CylinderPoints(base, axis geometry.Vec3, radius float64, heights []float64, perRing int, offsets []float64) []geometry.Vec3 {
	a, _ := axis.Normalize()
	e1 := a.Perpendicular()
	e2 := a.Cross(e1)

	var pts []geometry.Vec3
	for _, h := range heights {
		for k := 0; k < perRing; k++ {
			r := radius
			if offsets != nil {
				r += offsets[k]
			}
			s, c := math.Sincos(2 * math.Pi * float64(k) / float64(perRing))
			p := base.Add(a.Scale(h)).Add(e1.Scale(r * c)).Add(e2.Scale(r * s))
			pts = append(pts, p)
		}
	}
	return pts
}

// CirclePoints places n points evenly around a circle in the plane through
// center with the given normal.
func CirclePoints(center, normal geometry.Vec3, radius float64, n int, startAngle float64) []geometry.Vec3 {
	nrm, _ := normal.Normalize()
	e1 := nrm.Perpendicular()
	e2 := nrm.Cross(e1)
	pts := make([]geometry.Vec3, n)
	for k := 0; k < n; k++ {
		s, c := math.Sincos(startAngle + 2*math.Pi*float64(k)/float64(n))
		pts[k] = center.Add(e1.Scale(radius * c)).Add(e2.Scale(radius * s))
	}
	return pts
}

// AlternatingOffsets returns n offsets of +delta, -delta, +delta, ...
func AlternatingOffsets(n int, delta float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = delta
		} else {
			out[i] = -delta
		}
	}
	return out
}
