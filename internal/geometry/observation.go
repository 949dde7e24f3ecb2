package geometry

// Observation is a single measured 3-D point contributing to a fit.
//
// Observations are produced upstream and read by the fitting routines. The
// only field a fit writes is Used, which records whether the observation
// entered the adjustment.
type Observation struct {
	ID       int  `json:"id"`
	Position Vec3 `json:"position"`

	// Valid is false when the upstream producer could not resolve the point.
	Valid bool `json:"valid"`

	// ShouldBeUsed is the user/upstream opt-in. Observations with
	// ShouldBeUsed=false are excluded from the adjustment but still receive
	// a display residual.
	ShouldBeUsed bool `json:"should_be_used"`

	// Face optionally tags the sensor face the point was taken with.
	// Empty means untagged.
	Face string `json:"face,omitempty"`

	// Used is written back by the observation filter.
	Used bool `json:"used"`
}

// NewObservation returns a valid, opted-in observation at p.
func NewObservation(id int, p Vec3) Observation {
	return Observation{ID: id, Position: p, Valid: true, ShouldBeUsed: true}
}

// Positions extracts the positions of obs in order.
func Positions(obs []Observation) []Vec3 {
	pts := make([]Vec3, len(obs))
	for i, o := range obs {
		pts[i] = o.Position
	}
	return pts
}
