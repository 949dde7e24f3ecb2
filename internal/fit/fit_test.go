package fit

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/geofit/internal/config"
	"github.com/banshee-data/geofit/internal/fit/approx"
	"github.com/banshee-data/geofit/internal/geometry"
	"github.com/banshee-data/geofit/internal/monitoring"
	"github.com/banshee-data/geofit/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approxVec = cmpopts.EquateApprox(0, 1e-6)

func v(x, y, z float64) geometry.Vec3 { return geometry.NewVec3(x, y, z) }

func newFitter(t *testing.T, mutate func(*Options)) (*Fitter, *monitoring.RecordingSink) {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	sink := &monitoring.RecordingSink{}
	return New(opts, sink), sink
}

func unitSpherePoints() []geometry.Vec3 {
	pts := testutil.SpherePoints(geometry.Vec3{}, 1, testutil.OctahedronAngles, nil)
	k := 1 / math.Sqrt(3)
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				pts = append(pts, v(sx*k, sy*k, sz*k))
			}
		}
	}
	return pts
}

// referenceCylinder is 16 observations on two rings of radius 19.16 about
// the Z axis, with radial noise of ±0.05 alternating around each ring.
func referenceCylinder() []geometry.Observation {
	pts := testutil.CylinderPoints(geometry.Vec3{}, v(0, 0, 1), 19.16, []float64{0, 10}, 8,
		testutil.AlternatingOffsets(8, 0.05))
	return testutil.Observations(pts)
}

func TestFitPlane(t *testing.T) {
	t.Parallel()
	pts := []geometry.Vec3{v(0, 0, 0.001), v(1, 0, 0.002), v(1, 1, 0.004), v(0, 1, 0.003)}

	t.Run("reference fixture", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, nil)
		var pl geometry.Plane
		require.NoError(t, f.FitPlane(&pl, Inputs{Points: testutil.Observations(pts)}))

		assert.True(t, pl.IsSolved())
		if diff := cmp.Diff(v(-0.0009999975, -0.001999995, 0.9999975), pl.Direction, approxVec); diff != "" {
			t.Errorf("plane direction mismatch (-want +got):\n%s", diff)
		}
		assert.InDelta(t, 0.0025, pl.Position.Z, 1e-12)
		assert.Len(t, pl.Statistic.Residuals, 4)
	})

	t.Run("reversed input keeps the sense of its reference", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, nil)
		obs := testutil.Reversed(testutil.Observations(pts))
		var pl geometry.Plane
		require.NoError(t, f.FitPlane(&pl, Inputs{Points: obs}))

		p := geometry.Positions(obs)
		ref := p[1].Sub(p[0]).Cross(p[2].Sub(p[0]))
		assert.Greater(t, pl.Direction.Dot(ref), 0.0)
	})

	t.Run("dummy point sets the sense", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, nil)
		dummy := testutil.Observations([]geometry.Vec3{v(0.5, 0.5, -5)})
		var pl geometry.Plane
		require.NoError(t, f.FitPlane(&pl, Inputs{Points: testutil.Observations(pts), DummyPoints: dummy}))
		assert.Less(t, pl.Direction.Z, 0.0)
	})

	t.Run("shift offset and inverse sense", func(t *testing.T) {
		t.Parallel()
		flat := testutil.Observations([]geometry.Vec3{v(0, 0, 0), v(2, 0, 0), v(2, 2, 0), v(0, 2, 0)})
		f, _ := newFitter(t, func(o *Options) {
			o.ShiftOffset = 0.5
			o.InverseSense = true
		})
		var pl geometry.Plane
		require.NoError(t, f.FitPlane(&pl, Inputs{Points: flat}))

		testutil.AssertVecInDelta(t, v(0, 0, -1), pl.Direction, 1e-12)
		testutil.AssertVecInDelta(t, v(1, 1, -0.5), pl.Position, 1e-12)
		for _, id := range pl.Statistic.IDs() {
			r, _ := pl.Statistic.DisplayResidual(id)
			assert.InDelta(t, -0.5, r.Distance, 1e-12)
		}
	})

	t.Run("collinear points are degenerate", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, nil)
		line := testutil.Observations([]geometry.Vec3{v(0, 0, 0), v(1, 1, 1), v(2, 2, 2)})
		var pl geometry.Plane
		err := f.FitPlane(&pl, Inputs{Points: line})
		assert.True(t, errors.Is(err, ErrDegenerateGeometry))
		assert.False(t, pl.IsSolved())
	})
}

func TestFitLine(t *testing.T) {
	t.Parallel()
	pts := []geometry.Vec3{v(0, 0, 0), v(1, 1, 0), v(2, 2, 0), v(3, 3, 0)}

	t.Run("reference fixture", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, nil)
		var l geometry.Line
		require.NoError(t, f.FitLine(&l, Inputs{Points: testutil.Observations(pts)}))
		testutil.AssertVecInDelta(t, v(0.707106, 0.707107, 0.000002), l.Direction, 1e-5)
		assert.InDelta(t, 0.0, l.Statistic.Stdev, 1e-12)
	})

	t.Run("inverse sense", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, func(o *Options) { o.InverseSense = true })
		var l geometry.Line
		require.NoError(t, f.FitLine(&l, Inputs{Points: testutil.Observations(pts)}))
		assert.Less(t, l.Direction.X, 0.0)
	})

	t.Run("last point per face", func(t *testing.T) {
		t.Parallel()
		obs := testutil.Observations([]geometry.Vec3{v(0, 0, 0), v(0, 0, 5), v(1, 0, 0), v(1, 0, 9)})
		obs[0].Face, obs[1].Face = "a", "a"
		obs[2].Face, obs[3].Face = "b", "b"

		f, _ := newFitter(t, func(o *Options) { o.LastPerFace = true })
		var l geometry.Line
		require.NoError(t, f.FitLine(&l, Inputs{Points: obs}))

		testutil.AssertParallel(t, v(1, 0, 4), l.Direction, 1e-12)
		assert.Equal(t, []bool{false, true, false, true}, []bool{obs[0].Used, obs[1].Used, obs[2].Used, obs[3].Used})
		assert.Len(t, l.Statistic.Residuals, 4)
		assert.False(t, l.Statistic.Residuals[1].InUse)
		assert.True(t, l.Statistic.Residuals[2].InUse)
	})

	t.Run("reversed input flips the direction", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, nil)
		var fwd, rev geometry.Line
		require.NoError(t, f.FitLine(&fwd, Inputs{Points: testutil.Observations(pts)}))
		require.NoError(t, f.FitLine(&rev, Inputs{Points: testutil.Reversed(testutil.Observations(pts))}))

		testutil.AssertVecInDelta(t, fwd.Direction.Neg(), rev.Direction, 1e-12)
		assert.Less(t, rev.Direction.X, 0.0)
	})

	t.Run("opted out leading input still sets the sense", func(t *testing.T) {
		t.Parallel()
		// The first input points against the in-use run.
		obs := testutil.Observations([]geometry.Vec3{v(9, 0, 0), v(0, 0, 0), v(1, 0, 0), v(2, 0, 0)})
		obs[0].ShouldBeUsed = false

		f, _ := newFitter(t, nil)
		var l geometry.Line
		require.NoError(t, f.FitLine(&l, Inputs{Points: obs}))

		testutil.AssertVecInDelta(t, v(-1, 0, 0), l.Direction, 1e-12)
		testutil.AssertVecInDelta(t, v(1, 0, 0), l.Position, 1e-12)
		assert.False(t, obs[0].Used)
	})
}

func TestFitPoint(t *testing.T) {
	t.Parallel()
	f, _ := newFitter(t, nil)
	obs := testutil.Observations([]geometry.Vec3{v(1, 0, 0), v(-1, 0, 0), v(0, 3, 0)})
	obs[2].ShouldBeUsed = false

	var p geometry.Point
	require.NoError(t, f.FitPoint(&p, Inputs{Points: obs}))
	testutil.AssertVecInDelta(t, v(0, 0, 0), p.Position, 1e-12)
	// Σv² = 2 over 3·2-3 = 3 degrees of freedom.
	assert.InDelta(t, math.Sqrt(2.0/3), p.Statistic.Stdev, 1e-12)
	assert.InDelta(t, 3.0, p.Statistic.Residuals[3].Distance, 1e-12)
}

func TestFitCircle(t *testing.T) {
	t.Parallel()
	center := v(1, 2, 3)
	normal, _ := v(0, 1, 1).Normalize()
	obs := testutil.Observations(testutil.CirclePoints(center, normal, 2, 8, 0.3))

	f, _ := newFitter(t, nil)
	var c geometry.Circle
	require.NoError(t, f.FitCircle(&c, Inputs{Points: obs}))

	testutil.AssertVecInDelta(t, center, c.Position, 1e-9)
	testutil.AssertParallel(t, normal, c.Direction, 1e-9)
	assert.InDelta(t, 2.0, c.Radius, 1e-9)
	assert.InDelta(t, 0.0, c.Statistic.Stdev, 1e-9)

	// The points run counter-clockwise about normal, so the first three
	// span a triangle whose normal is +normal.
	testutil.AssertVecInDelta(t, normal, c.Direction, 1e-9)

	var rev geometry.Circle
	require.NoError(t, f.FitCircle(&rev, Inputs{Points: testutil.Reversed(obs)}))
	testutil.AssertVecInDelta(t, normal.Neg(), rev.Direction, 1e-9)
	testutil.AssertVecInDelta(t, center, rev.Position, 1e-9)
	assert.InDelta(t, c.Radius, rev.Radius, 1e-9)
}

func TestFitSphere(t *testing.T) {
	t.Parallel()

	t.Run("unused observation gets a residual only", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, nil)
		pts := unitSpherePoints()

		var ref geometry.Sphere
		require.NoError(t, f.FitSphere(&ref, Inputs{Points: testutil.Observations(pts)}))

		obs := testutil.Observations(append(pts, v(2, 2, 2)))
		extra := &obs[len(obs)-1]
		extra.ShouldBeUsed = false

		var s geometry.Sphere
		require.NoError(t, f.FitSphere(&s, Inputs{Points: obs}))

		assert.Equal(t, ref.Position, s.Position)
		assert.Equal(t, ref.Radius, s.Radius)
		testutil.AssertVecInDelta(t, geometry.Vec3{}, s.Position, 1e-9)
		assert.InDelta(t, 1.0, s.Radius, 1e-9)

		r, ok := s.Statistic.DisplayResidual(extra.ID)
		require.True(t, ok)
		assert.False(t, r.InUse)
		assert.InDelta(t, 2.46, r.Distance, 0.01)
		assert.False(t, extra.Used)
	})

	t.Run("translated sphere", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, nil)
		center := v(10, -4, 2)
		pts := testutil.SpherePoints(center, 2.5, testutil.OctahedronAngles, testutil.AlternatingOffsets(6, 0.01))

		var s geometry.Sphere
		require.NoError(t, f.FitSphere(&s, Inputs{Points: testutil.Observations(pts)}))
		testutil.AssertVecInDelta(t, center, s.Position, 0.02)
		assert.InDelta(t, 2.5, s.Radius, 0.02)
		assert.Greater(t, s.Statistic.Stdev, 0.0)
	})
}

func TestFitCylinder(t *testing.T) {
	t.Parallel()

	t.Run("reference fixture with guess axis", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, nil)
		var c geometry.Cylinder
		require.NoError(t, f.FitCylinder(&c, Inputs{Points: referenceCylinder()}))

		assert.InDelta(t, 19.16, c.Radius, 0.005)
		assert.InDelta(t, 0.03, c.Statistic.Stdev, 0.01)
		testutil.AssertParallel(t, v(0, 0, 1), c.Direction, 1e-9)
		testutil.AssertVecInDelta(t, v(0, 0, 5), c.Position, 1e-6)
		assert.True(t, c.Statistic.HasFormError)
		assert.InDelta(t, 0.1, c.Statistic.FormError, 1e-6)
	})

	t.Run("tilted cylinder with every strategy", func(t *testing.T) {
		t.Parallel()
		axis, _ := v(0.1, -0.2, 1).Normalize()
		base := v(3, -1, 2)
		pts := testutil.CylinderPoints(base, axis, 4, []float64{-3, 0, 3}, 6, testutil.AlternatingOffsets(6, 0.002))
		obs := testutil.Observations(pts)
		dummies := testutil.Observations([]geometry.Vec3{base, base.Add(axis.Scale(5))})

		for _, strategy := range []approx.Approximation{approx.GuessAxis, approx.Direction, approx.FirstTwoDummyPoints} {
			strategy := strategy
			t.Run(strategy.String(), func(t *testing.T) {
				t.Parallel()
				f, _ := newFitter(t, func(o *Options) { o.Approximation = strategy })
				var c geometry.Cylinder
				require.NoError(t, f.FitCylinder(&c, Inputs{Points: obs, DummyPoints: dummies, Direction: &axis}))

				testutil.AssertParallel(t, axis, c.Direction, 1e-6)
				assert.InDelta(t, 4.0, c.Radius, 1e-3)
				off := c.Position.Sub(base)
				assert.InDelta(t, 0.0, off.Sub(axis.Scale(off.Dot(axis))).Norm(), 1e-6)
			})
		}
	})

	t.Run("iteration cap leaves the cylinder untouched", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, func(o *Options) { o.CylinderMaxIterations = 1 })
		c := geometry.Cylinder{Position: v(1, 2, 3), Radius: 7}
		before := c

		err := f.FitCylinder(&c, Inputs{Points: referenceCylinder()})
		require.True(t, errors.Is(err, ErrNonConvergence), "got %v", err)
		assert.Equal(t, before, c)
	})

	t.Run("direction strategy needs a direction", func(t *testing.T) {
		t.Parallel()
		f, _ := newFitter(t, func(o *Options) { o.Approximation = approx.Direction })
		var c geometry.Cylinder
		err := f.FitCylinder(&c, Inputs{Points: referenceCylinder()})
		assert.True(t, errors.Is(err, ErrDegenerateGeometry))
	})
}

func TestMinimumObservations(t *testing.T) {
	t.Parallel()
	cylAxis := v(0, 0, 1)
	var cyl []geometry.Vec3
	for k := 0; k < 5; k++ {
		s, c := math.Sincos(2 * math.Pi * float64(k) / 5)
		cyl = append(cyl, v(1+3*c, 1+3*s, float64(k)))
	}

	cases := []struct {
		kind geometry.Kind
		pts  []geometry.Vec3
	}{
		{geometry.KindPoint, []geometry.Vec3{v(1, 2, 3)}},
		{geometry.KindLine, []geometry.Vec3{v(0, 0, 0), v(1, 2, 3)}},
		{geometry.KindPlane, []geometry.Vec3{v(0, 0, 0), v(1, 0, 0), v(0, 1, 0)}},
		{geometry.KindCircle, testutil.CirclePoints(v(0, 0, 0), v(0, 0, 1), 2, 3, 0)},
		{geometry.KindSphere, []geometry.Vec3{v(1, 0, 0), v(0, 1, 0), v(0, 0, 1), v(-1, 0, 0)}},
		{geometry.KindCylinder, cyl},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.kind.String(), func(t *testing.T) {
			t.Parallel()
			f, _ := newFitter(t, func(o *Options) { o.Approximation = approx.Direction })
			in := func(pts []geometry.Vec3) Inputs {
				return Inputs{Points: testutil.Observations(pts), Direction: &cylAxis}
			}

			short, err := geometry.New(tc.kind)
			require.NoError(t, err)
			err = f.Fit(short, in(tc.pts[:len(tc.pts)-1]))
			assert.True(t, errors.Is(err, ErrInsufficientData), "min-1: %v", err)
			assert.False(t, short.IsSolved())

			exact, err := geometry.New(tc.kind)
			require.NoError(t, err)
			require.NoError(t, f.Fit(exact, in(tc.pts)))
			assert.True(t, exact.IsSolved())
			assert.Len(t, exact.Stat().Residuals, len(tc.pts))
		})
	}
}

func TestIdempotence(t *testing.T) {
	t.Parallel()
	f, _ := newFitter(t, nil)
	in := Inputs{Points: referenceCylinder()}

	var c geometry.Cylinder
	require.NoError(t, f.FitCylinder(&c, in))
	first := c
	require.NoError(t, f.FitCylinder(&c, in))
	assert.Equal(t, first, c)

	var s1, s2 geometry.Sphere
	pts := testutil.Observations(testutil.SpherePoints(v(1, 1, 1), 3, testutil.OctahedronAngles, testutil.AlternatingOffsets(6, 0.02)))
	require.NoError(t, f.FitSphere(&s1, Inputs{Points: pts}))
	require.NoError(t, f.FitSphere(&s2, Inputs{Points: pts}))
	assert.Equal(t, s1, s2)
}

func TestExec(t *testing.T) {
	t.Parallel()

	t.Run("failure is reported and nothing is written", func(t *testing.T) {
		t.Parallel()
		f, sink := newFitter(t, nil)
		s := geometry.Sphere{Radius: 42}
		ok := f.Exec(&s, Inputs{Points: testutil.Observations(unitSpherePoints()[:3])})

		assert.False(t, ok)
		assert.Equal(t, 42.0, s.Radius)
		assert.False(t, s.IsSolved())
		msgs := sink.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, monitoring.SeverityWarning, msgs[0].Severity)
		assert.Contains(t, msgs[0].Text, "sphere fit failed")
		assert.Contains(t, msgs[0].Text, "insufficient data")
	})

	t.Run("success sends no message", func(t *testing.T) {
		t.Parallel()
		f, sink := newFitter(t, nil)
		var s geometry.Sphere
		assert.True(t, f.Exec(&s, Inputs{Points: testutil.Observations(unitSpherePoints())}))
		assert.Empty(t, sink.Messages())
	})

	t.Run("nil primitive is not applicable", func(t *testing.T) {
		t.Parallel()
		f, sink := newFitter(t, nil)
		assert.True(t, errors.Is(f.Fit(nil, Inputs{}), ErrNotApplicable))
		assert.False(t, f.Exec(nil, Inputs{}))
		require.Len(t, sink.Messages(), 1)
	})

	t.Run("typed nil primitive is not applicable", func(t *testing.T) {
		t.Parallel()
		f, sink := newFitter(t, nil)
		in := Inputs{Points: testutil.Observations(unitSpherePoints())}
		for _, p := range []geometry.Primitive{
			(*geometry.Point)(nil), (*geometry.Line)(nil), (*geometry.Plane)(nil),
			(*geometry.Circle)(nil), (*geometry.Sphere)(nil), (*geometry.Cylinder)(nil),
		} {
			err := f.Fit(p, in)
			assert.True(t, errors.Is(err, ErrNotApplicable), "%T: %v", p, err)
		}
		assert.NotPanics(t, func() {
			assert.False(t, f.Exec((*geometry.Sphere)(nil), in))
		})
		msgs := sink.Messages()
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Text, "sphere fit failed")
		assert.Contains(t, msgs[0].Text, "not applicable")
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	f, err := NewFromConfig(config.DefaultFitConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), f.Options())

	// The shipped defaults file agrees with the built-in defaults.
	f, err = NewFromConfig(config.MustLoadDefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), f.Options())

	strategy := "first two points"
	inverse := "inverse"
	cfg := &config.FitConfig{Approximation: &strategy, RectifySense: &inverse}
	f, err = NewFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, approx.FirstTwoPoints, f.Options().Approximation)
	assert.True(t, f.Options().InverseSense)

	zero := 0
	_, err = NewFromConfig(&config.FitConfig{SphereMaxIterations: &zero}, nil)
	assert.Error(t, err)
}
