package adjust

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/banshee-data/geofit/internal/fit/fiterr"
	"github.com/banshee-data/geofit/internal/geometry"
	"github.com/banshee-data/geofit/internal/monitoring"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultThreshold is the stop criterion on the squared norm of the
	// parameter correction.
	DefaultThreshold = 1e-13

	// DefaultMaxPerturbations bounds the random restarts of one line search.
	DefaultMaxPerturbations = 8

	// initialSigma is the first damping factor tried by the line search.
	initialSigma = 2.0
	// minSigma triggers a perturbation (or gives up) once σ drops below it.
	minSigma = 0.1
	// perturbationScale bounds each perturbation to ±scale·|correction|.
	perturbationScale = 3.0
	// armijoC is the sufficient-decrease constant of the line search.
	armijoC = 1e-4
	// gradientEpsilon guards against a vanishing gradient of f with
	// respect to the observation.
	gradientEpsilon = 1e-24
	// maxNormalCondition is the largest accepted condition number of the
	// reduced normal matrix.
	maxNormalCondition = 1e15
)

// Model describes one condition equation per observation.
type Model interface {
	// NumParams is the length of the parameter vector.
	NumParams() int

	// Condition evaluates f(params, p), writes ∂f/∂params into dParams
	// (length NumParams) and returns ∂f/∂p.
	Condition(params []float64, p geometry.Vec3, dParams []float64) (f float64, dPoint geometry.Vec3)
}

// Options controls Refine.
type Options struct {
	// MaxIterations caps the number of iterations. Reaching it without
	// meeting the stop criterion is a failure.
	MaxIterations int

	// Threshold on ‖dx‖². Zero selects DefaultThreshold.
	Threshold float64

	// Perturb enables the random perturbation of a stalled line search.
	// A line search that still finds no descent uses up its iteration and
	// the next iteration draws fresh perturbations. Without Perturb a
	// stalled line search fails immediately.
	Perturb bool

	// MaxPerturbations bounds perturbations per line search. Zero selects
	// DefaultMaxPerturbations.
	MaxPerturbations int

	// Rand drives the perturbation. A nil Rand uses a source seeded with 1.
	Rand *rand.Rand
}

// Result is the outcome of a successful Refine.
type Result struct {
	Params []float64
	// Corrections are the final observation corrections v, in input order.
	Corrections []geometry.Vec3
	Iterations  int
	// Merit is Σ f(params, l)² over the observations.
	Merit float64
}

// Refine runs the adjustment from params0 over the observations pts.
func Refine(m Model, params0 []float64, pts []geometry.Vec3, opts Options) (Result, error) {
	u := m.NumParams()
	if len(params0) != u {
		return Result{}, fmt.Errorf("%w: %d start parameters for a %d-parameter model", fiterr.ErrNotApplicable, len(params0), u)
	}
	if len(pts) < u {
		return Result{}, fmt.Errorf("%w: %d observations for %d parameters", fiterr.ErrInsufficientData, len(pts), u)
	}
	if opts.MaxIterations <= 0 {
		return Result{}, fmt.Errorf("%w: iteration cap must be positive, got %d", fiterr.ErrNotApplicable, opts.MaxIterations)
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MaxPerturbations <= 0 {
		opts.MaxPerturbations = DefaultMaxPerturbations
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}

	s := &solver{
		model: m,
		pts:   pts,
		opts:  opts,
		x:     append([]float64(nil), params0...),
		v:     make([]geometry.Vec3, len(pts)),
		row:   make([]float64, u),
	}
	merit, err := s.merit(s.x)
	if err != nil {
		return Result{}, err
	}

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		dx, vNew, err := s.normalStep()
		if err != nil {
			return Result{}, err
		}

		norm2 := floats.Dot(dx, dx)
		if norm2 < opts.Threshold {
			floats.Add(s.x, dx)
			s.v = vNew
			if merit, err = s.merit(s.x); err != nil {
				return Result{}, err
			}
			monitoring.Tracef("adjust: converged after %d iterations, merit=%.6g |dx|²=%.3g", iter, merit, norm2)
			return s.result(iter, merit), nil
		}

		sigma, trial, trialMerit, err := s.lineSearch(dx, merit)
		if err != nil {
			return Result{}, err
		}
		if sigma == 0 {
			monitoring.Tracef("adjust: line search stalled at iteration %d, merit=%.6g |dx|²=%.3g", iter, merit, norm2)
			if !opts.Perturb {
				return Result{}, fmt.Errorf("%w: no descent step at iteration %d (|dx|²=%.3g)", fiterr.ErrNonConvergence, iter, norm2)
			}
			continue
		}

		s.x = trial
		merit = trialMerit
		for i := range s.v {
			s.v[i] = s.v[i].Add(vNew[i].Sub(s.v[i]).Scale(sigma))
		}
		monitoring.Tracef("adjust: iteration %d sigma=%.3g merit=%.6g |dx|²=%.3g", iter, sigma, merit, norm2)
	}

	return Result{}, fmt.Errorf("%w: stop criterion not met after %d iterations", fiterr.ErrNonConvergence, opts.MaxIterations)
}

type solver struct {
	model Model
	pts   []geometry.Vec3
	opts  Options
	x     []float64
	v     []geometry.Vec3
	row   []float64
}

func (s *solver) result(iter int, merit float64) Result {
	return Result{
		Params:      s.x,
		Corrections: s.v,
		Iterations:  iter,
		Merit:       merit,
	}
}

// normalStep linearises the conditions at the current parameters and at
// the corrected observations l+v:
//
//	A·dx + B·v + w = 0,  w = f(x, l+v₀) - B·v₀
//
// Minimising vᵀv under that constraint gives the combined system
//
//	[ BBᵀ  A ] [ k  ]   [ -w ]
//	[ Aᵀ   0 ] [ dx ] = [  0 ]
//
// BBᵀ is diagonal (each condition touches one observation), so the
// correction block is eliminated and AᵀWA·dx = -AᵀW·w is solved with
// W = (BBᵀ)⁻¹. The new corrections are v = -BᵀW(A·dx + w).
func (s *solver) normalStep() ([]float64, []geometry.Vec3, error) {
	u := s.model.NumParams()
	n := len(s.pts)

	rows := mat.NewDense(n, u, nil)
	grads := make([]geometry.Vec3, n)
	weights := make([]float64, n)
	misclosure := make([]float64, n)

	nrm := mat.NewSymDense(u, nil)
	rhs := mat.NewVecDense(u, nil)
	for i, p := range s.pts {
		f, b := s.model.Condition(s.x, p.Add(s.v[i]), s.row)
		bb := b.Dot(b)
		if !(bb > gradientEpsilon) || math.IsNaN(f) {
			return nil, nil, fmt.Errorf("%w: condition %d has no usable gradient", fiterr.ErrNumericFailure, i)
		}
		w := f - b.Dot(s.v[i])

		rows.SetRow(i, s.row)
		grads[i] = b
		weights[i] = 1 / bb
		misclosure[i] = w

		for j := 0; j < u; j++ {
			rhs.SetVec(j, rhs.AtVec(j)-s.row[j]*w/bb)
			for k := j; k < u; k++ {
				nrm.SetSym(j, k, nrm.At(j, k)+s.row[j]*s.row[k]/bb)
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(nrm); !ok {
		return nil, nil, fmt.Errorf("%w: normal equations are singular", fiterr.ErrNumericFailure)
	}
	if cond := chol.Cond(); cond > maxNormalCondition {
		return nil, nil, fmt.Errorf("%w: normal equations are ill-conditioned (cond %.3g)", fiterr.ErrNumericFailure, cond)
	}
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, rhs); err != nil {
		return nil, nil, fmt.Errorf("%w: normal equations: %v", fiterr.ErrNumericFailure, err)
	}
	dx := make([]float64, u)
	for j := range dx {
		dx[j] = sol.AtVec(j)
		if math.IsNaN(dx[j]) || math.IsInf(dx[j], 0) {
			return nil, nil, fmt.Errorf("%w: non-finite parameter correction", fiterr.ErrNumericFailure)
		}
	}

	var adx mat.VecDense
	adx.MulVec(rows, &sol)
	vNew := make([]geometry.Vec3, n)
	for i := range vNew {
		k := weights[i] * (adx.AtVec(i) + misclosure[i])
		vNew[i] = grads[i].Scale(-k)
	}
	return dx, vNew, nil
}

// merit returns Σ f(x, l)²/|∂f/∂l|² over the uncorrected observations.
func (s *solver) merit(x []float64) (float64, error) {
	var sum float64
	for i, p := range s.pts {
		f, b := s.model.Condition(x, p, s.row)
		bb := b.Dot(b)
		if !(bb > gradientEpsilon) || math.IsNaN(f) {
			return 0, fmt.Errorf("%w: condition %d has no usable gradient", fiterr.ErrNumericFailure, i)
		}
		sum += f * f / bb
	}
	return sum, nil
}

// slope returns the directional derivative of the merit along step.
func (s *solver) slope(x, step []float64) float64 {
	var g float64
	for _, p := range s.pts {
		f, b := s.model.Condition(x, p, s.row)
		g += 2 * f / b.Dot(b) * floats.Dot(s.row, step)
	}
	return g
}

// lineSearch halves σ from 2.0 until x+σ·step lowers the merit and
// satisfies the Armijo condition. Once σ falls below 0.1 the step is perturbed component-wise
// by a uniform draw in ±3·|dx| and σ restarts. A zero σ is returned when
// nothing is accepted.
func (s *solver) lineSearch(dx []float64, merit float64) (float64, []float64, float64, error) {
	step := append([]float64(nil), dx...)
	slope := math.Min(0, s.slope(s.x, step))
	trial := make([]float64, len(dx))
	perturbations := 0
	sigma := initialSigma

	for {
		copy(trial, s.x)
		floats.AddScaled(trial, sigma, step)
		tm, err := s.merit(trial)
		if err == nil && tm < merit && tm <= merit+armijoC*sigma*slope {
			return sigma, trial, tm, nil
		}

		sigma /= 2
		if sigma >= minSigma {
			continue
		}
		if !s.opts.Perturb || perturbations >= s.opts.MaxPerturbations {
			return 0, nil, merit, nil
		}
		perturbations++
		for j := range step {
			bound := perturbationScale * math.Abs(dx[j])
			step[j] = dx[j] + (2*s.opts.Rand.Float64()-1)*bound
		}
		slope = math.Min(0, s.slope(s.x, step))
		sigma = initialSigma
	}
}
