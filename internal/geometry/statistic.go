package geometry

import "sort"

// Residual is the display correction for one observation, computed against
// the solved primitive.
type Residual struct {
	// Correction points from the observation to its foot point on the
	// primitive.
	Correction Vec3 `json:"correction"`

	// Distance is the signed distance to the surface where the primitive
	// has an inside and an outside (positive outside / along the normal),
	// and the unsigned distance for points and lines.
	Distance float64 `json:"distance"`

	// InUse is true when the observation entered the adjustment.
	InUse bool `json:"in_use"`
}

// Statistic is the quality record attached to a primitive by a fit.
// Stdev is only meaningful when Valid is true.
type Statistic struct {
	Valid        bool             `json:"valid"`
	Stdev        float64          `json:"stdev"`
	FormError    float64          `json:"form_error,omitempty"`
	HasFormError bool             `json:"has_form_error,omitempty"`
	Residuals    map[int]Residual `json:"residuals"`
}

// DisplayResidual returns the residual recorded for an observation ID.
func (s *Statistic) DisplayResidual(id int) (Residual, bool) {
	r, ok := s.Residuals[id]
	return r, ok
}

// IDs returns the observation IDs with a recorded residual in ascending order.
func (s *Statistic) IDs() []int {
	ids := make([]int, 0, len(s.Residuals))
	for id := range s.Residuals {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
