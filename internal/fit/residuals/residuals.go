package residuals

import (
	"math"

	"github.com/banshee-data/geofit/internal/geometry"
	"gonum.org/v1/gonum/floats"
)

// Model describes how the standard deviation is normalised.
type Model struct {
	// Vector is true when every observation contributes three
	// coordinates to the adjustment (dof = 3n - Params) rather than a
	// single distance (dof = n - Params).
	Vector bool
	// Params is the number of estimated parameters, nuisance ones
	// included.
	Params int
	// FormError enables the max - min distance over in-use observations.
	FormError bool
}

// ModelFor returns the statistics model of a primitive kind.
func ModelFor(k geometry.Kind) Model {
	switch k {
	case geometry.KindPoint:
		return Model{Vector: true, Params: 3}
	case geometry.KindLine:
		return Model{Params: 2}
	case geometry.KindPlane, geometry.KindCircle:
		return Model{Params: 3}
	case geometry.KindSphere:
		return Model{Vector: true, Params: 9}
	case geometry.KindCylinder:
		return Model{Vector: true, Params: 5, FormError: true}
	default:
		return Model{}
	}
}

// DegreesOfFreedom returns the redundancy of n in-use observations.
func (m Model) DegreesOfFreedom(n int) int {
	if m.Vector {
		return 3*n - m.Params
	}
	return n - m.Params
}

// Compute projects every usable observation onto s and returns the
// resulting statistic. inUse selects the observations that count towards
// the standard deviation and the form error.
func Compute(s Surface, usable []geometry.Observation, inUse map[int]bool, m Model) geometry.Statistic {
	st := geometry.Statistic{
		Valid:     true,
		Residuals: make(map[int]geometry.Residual, len(usable)),
	}

	var used []float64
	for _, o := range usable {
		foot, d := s.Foot(o.Position)
		r := geometry.Residual{
			Correction: foot.Sub(o.Position),
			Distance:   d,
			InUse:      inUse[o.ID],
		}
		st.Residuals[o.ID] = r
		if r.InUse {
			used = append(used, d)
		}
	}

	if dof := m.DegreesOfFreedom(len(used)); dof > 0 {
		st.Stdev = math.Sqrt(floats.Dot(used, used) / float64(dof))
	}
	if m.FormError && len(used) > 0 {
		st.FormError = floats.Max(used) - floats.Min(used)
		st.HasFormError = true
	}
	return st
}
