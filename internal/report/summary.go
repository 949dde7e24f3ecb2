package report

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/geofit/internal/fsutil"
	"github.com/banshee-data/geofit/internal/geometry"
	"github.com/banshee-data/geofit/internal/units"
	"gonum.org/v1/gonum/stat"
)

// Parameters are the fitted fields of a primitive. Fields the primitive
// does not have are nil.
type Parameters struct {
	Position  geometry.Vec3  `json:"position"`
	Direction *geometry.Vec3 `json:"direction,omitempty"`
	Radius    *float64       `json:"radius,omitempty"`
}

// Row is the residual of one observation.
type Row struct {
	ID         int           `json:"id"`
	Distance   float64       `json:"distance"`
	Correction geometry.Vec3 `json:"correction"`
	InUse      bool          `json:"in_use"`
}

// Summary describes one fit run.
type Summary struct {
	RunID       string        `json:"run_id"`
	Primitive   string        `json:"primitive"`
	Units       string        `json:"units"`
	Solved      bool          `json:"solved"`
	GeneratedAt time.Time     `json:"generated_at"`
	Elapsed     time.Duration `json:"elapsed_ns"`

	Parameters Parameters `json:"parameters"`
	Stdev      float64    `json:"stdev"`
	FormError  *float64   `json:"form_error,omitempty"`

	// MeanDistance and MaxAbsDistance cover the in-use rows only.
	MeanDistance   float64 `json:"mean_distance"`
	MaxAbsDistance float64 `json:"max_abs_distance"`

	Rows []Row `json:"rows"`
}

// NewSummary collects the statistic of p. Rows are ordered by ID.
func NewSummary(runID string, p geometry.Primitive, generatedAt time.Time, elapsed time.Duration) Summary {
	st := p.Stat()
	s := Summary{
		RunID:       runID,
		Primitive:   p.Kind().String(),
		Units:       units.Metres,
		Solved:      p.IsSolved(),
		GeneratedAt: generatedAt,
		Elapsed:     elapsed,
		Parameters:  parametersOf(p),
		Stdev:       st.Stdev,
	}
	if st.HasFormError {
		fe := st.FormError
		s.FormError = &fe
	}

	var used []float64
	for _, id := range st.IDs() {
		r := st.Residuals[id]
		s.Rows = append(s.Rows, Row{ID: id, Distance: r.Distance, Correction: r.Correction, InUse: r.InUse})
		if r.InUse {
			used = append(used, r.Distance)
			s.MaxAbsDistance = math.Max(s.MaxAbsDistance, math.Abs(r.Distance))
		}
	}
	if len(used) > 0 {
		s.MeanDistance = stat.Mean(used, nil)
	}
	return s
}

// InUnits returns a copy of s with every length converted from metres to
// the target unit. Directions are unitless and stay as they are.
func (s Summary) InUnits(target string) (Summary, error) {
	if !units.IsValid(target) {
		return s, fmt.Errorf("invalid units %q: must be one of %s", target, units.GetValidUnitsString())
	}
	if s.Units != units.Metres && s.Units != "" {
		return s, fmt.Errorf("summary is already in %s", s.Units)
	}
	k := units.LengthFactor(target)

	out := s
	out.Units = target
	out.Parameters.Position = s.Parameters.Position.Scale(k)
	if s.Parameters.Direction != nil {
		d := *s.Parameters.Direction
		out.Parameters.Direction = &d
	}
	if s.Parameters.Radius != nil {
		r := *s.Parameters.Radius * k
		out.Parameters.Radius = &r
	}
	out.Stdev = s.Stdev * k
	if s.FormError != nil {
		fe := *s.FormError * k
		out.FormError = &fe
	}
	out.MeanDistance = s.MeanDistance * k
	out.MaxAbsDistance = s.MaxAbsDistance * k

	out.Rows = make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		r.Distance *= k
		r.Correction = r.Correction.Scale(k)
		out.Rows[i] = r
	}
	return out, nil
}

func parametersOf(p geometry.Primitive) Parameters {
	switch v := p.(type) {
	case *geometry.Point:
		return Parameters{Position: v.Position}
	case *geometry.Line:
		return Parameters{Position: v.Position, Direction: &v.Direction}
	case *geometry.Plane:
		return Parameters{Position: v.Position, Direction: &v.Direction}
	case *geometry.Circle:
		return Parameters{Position: v.Position, Direction: &v.Direction, Radius: &v.Radius}
	case *geometry.Sphere:
		return Parameters{Position: v.Position, Radius: &v.Radius}
	case *geometry.Cylinder:
		return Parameters{Position: v.Position, Direction: &v.Direction, Radius: &v.Radius}
	default:
		return Parameters{}
	}
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(fsys fsutil.FileSystem, path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
