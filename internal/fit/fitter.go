package fit

import (
	"fmt"
	"math/rand"

	"github.com/banshee-data/geofit/internal/config"
	"github.com/banshee-data/geofit/internal/fit/adjust"
	"github.com/banshee-data/geofit/internal/fit/approx"
	"github.com/banshee-data/geofit/internal/fit/observations"
	"github.com/banshee-data/geofit/internal/fit/residuals"
	"github.com/banshee-data/geofit/internal/geometry"
	"github.com/banshee-data/geofit/internal/monitoring"
	"github.com/banshee-data/geofit/internal/timeutil"
)

// Options tunes a Fitter. DefaultOptions gives the stock values.
type Options struct {
	Approximation approx.Approximation
	LastPerFace   bool

	SphereMaxIterations   int
	CylinderMaxIterations int
	Threshold             float64
	Perturb               bool
	// Seed initialises a fresh random source for every refinement, so
	// repeated fits of the same input are identical.
	Seed int64

	// ShiftOffset moves a fitted plane along its normal.
	ShiftOffset float64
	// InverseSense flips the rectified direction of lines, planes and
	// circles.
	InverseSense bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Approximation:         approx.GuessAxis,
		SphereMaxIterations:   100,
		CylinderMaxIterations: 1000,
		Threshold:             adjust.DefaultThreshold,
		Perturb:               true,
		Seed:                  1,
	}
}

// OptionsFromConfig maps a validated FitConfig onto Options.
func OptionsFromConfig(cfg *config.FitConfig) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	return Options{
		Approximation:         cfg.GetApproximation(),
		LastPerFace:           cfg.GetLastPointPerFace(),
		SphereMaxIterations:   cfg.GetSphereMaxIterations(),
		CylinderMaxIterations: cfg.GetCylinderMaxIterations(),
		Threshold:             cfg.GetConvergenceThreshold(),
		Perturb:               cfg.GetArmijoPerturbation(),
		Seed:                  cfg.GetRandomSeed(),
		ShiftOffset:           cfg.GetPlaneShiftOffset(),
		InverseSense:          cfg.GetInverseSense(),
	}, nil
}

// Inputs are the observations of one fit, by role.
type Inputs struct {
	Points []geometry.Observation
	// DummyPoints rectify plane and circle normals and feed the
	// "first two dummy points" cylinder approximation.
	DummyPoints []geometry.Observation
	// Direction feeds the "direction" cylinder approximation.
	Direction *geometry.Vec3
}

// Fitter fits primitives. It holds no state between calls apart from its
// configuration, so one Fitter may be reused for any number of fits.
type Fitter struct {
	opts  Options
	sink  monitoring.Sink
	clock timeutil.Clock
}

// New returns a Fitter. A nil sink sends messages to the log streams.
func New(opts Options, sink monitoring.Sink) *Fitter {
	if sink == nil {
		sink = monitoring.LogSink{}
	}
	return &Fitter{opts: opts, sink: sink, clock: timeutil.RealClock{}}
}

// NewFromConfig returns a Fitter configured from cfg.
func NewFromConfig(cfg *config.FitConfig, sink monitoring.Sink) (*Fitter, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("fit config: %w", err)
	}
	return New(opts, sink), nil
}

// SetClock replaces the clock used to time fits.
func (f *Fitter) SetClock(c timeutil.Clock) { f.clock = c }

// Options returns the fitter configuration.
func (f *Fitter) Options() Options { return f.opts }

// Fit dispatches on the primitive variant. A nil primitive, typed or not,
// is not applicable.
func (f *Fitter) Fit(p geometry.Primitive, in Inputs) error {
	switch v := p.(type) {
	case *geometry.Point:
		if v != nil {
			return f.FitPoint(v, in)
		}
	case *geometry.Line:
		if v != nil {
			return f.FitLine(v, in)
		}
	case *geometry.Plane:
		if v != nil {
			return f.FitPlane(v, in)
		}
	case *geometry.Circle:
		if v != nil {
			return f.FitCircle(v, in)
		}
	case *geometry.Sphere:
		if v != nil {
			return f.FitSphere(v, in)
		}
	case *geometry.Cylinder:
		if v != nil {
			return f.FitCylinder(v, in)
		}
	default:
		return fmt.Errorf("%w: cannot fit %T", ErrNotApplicable, p)
	}
	return fmt.Errorf("%w: nil %T", ErrNotApplicable, p)
}

// Exec runs Fit and reports a failure through the sink. It returns true
// when the primitive was solved.
func (f *Fitter) Exec(p geometry.Primitive, in Inputs) bool {
	start := f.clock.Now()
	if err := f.Fit(p, in); err != nil {
		f.sink.Message(describe(p, err), monitoring.SeverityWarning)
		return false
	}
	st := p.Stat()
	monitoring.Diagf("fit: %s solved in %v, stdev=%.6g, %d residuals",
		p.Kind(), f.clock.Since(start), st.Stdev, len(st.Residuals))
	return true
}

func describe(p geometry.Primitive, err error) string {
	if p == nil {
		return fmt.Sprintf("fit failed: %v", err)
	}
	return fmt.Sprintf("%s fit failed: %v", p.Kind(), err)
}

// filter applies the observation policy and checks the minimum count.
func (f *Fitter) filter(k geometry.Kind, obs []geometry.Observation) (observations.Set, error) {
	set := observations.Filter(obs, observations.Policy{LastPerFace: f.opts.LastPerFace})
	if err := set.Require(k); err != nil {
		return observations.Set{}, err
	}
	return set, nil
}

func (f *Fitter) refineOptions(maxIter int) adjust.Options {
	return adjust.Options{
		MaxIterations: maxIter,
		Threshold:     f.opts.Threshold,
		Perturb:       f.opts.Perturb,
		Rand:          rand.New(rand.NewSource(f.opts.Seed)),
	}
}

// statistic computes the residuals of set against the candidate result.
func statistic(k geometry.Kind, s residuals.Surface, set observations.Set) geometry.Statistic {
	return residuals.Compute(s, set.AllUsable, set.InUseIDs(), residuals.ModelFor(k))
}

// firstValid returns the position of the first valid observation.
func firstValid(obs []geometry.Observation) *geometry.Vec3 {
	for _, o := range obs {
		if o.Valid {
			p := o.Position
			return &p
		}
	}
	return nil
}

// leadingDirection returns the vector from the first to the second valid
// observation, whether or not either is in use.
func leadingDirection(usable []geometry.Observation) geometry.Vec3 {
	if len(usable) < 2 {
		return geometry.Vec3{}
	}
	return usable[1].Position.Sub(usable[0].Position)
}

func validPositions(obs []geometry.Observation) []geometry.Vec3 {
	var pts []geometry.Vec3
	for _, o := range obs {
		if o.Valid {
			pts = append(pts, o.Position)
		}
	}
	return pts
}
