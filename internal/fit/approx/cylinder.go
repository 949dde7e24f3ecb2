package approx

import (
	"fmt"
	"strings"

	"github.com/banshee-data/geofit/internal/fit/fiterr"
	"github.com/banshee-data/geofit/internal/geometry"
)

// Approximation selects how cylinder axis candidates are generated.
type Approximation int

const (
	// GuessAxis tries each principal axis of the observations.
	GuessAxis Approximation = iota
	// FirstTwoPoints uses the axis through the first two observations.
	FirstTwoPoints
	// Direction uses an externally supplied direction.
	Direction
	// FirstTwoDummyPoints uses the axis through the first two dummy points.
	FirstTwoDummyPoints
)

var approximationNames = map[Approximation]string{
	GuessAxis:           "guess axis",
	FirstTwoPoints:      "first two points",
	Direction:           "direction",
	FirstTwoDummyPoints: "first two dummy points",
}

func (a Approximation) String() string {
	if s, ok := approximationNames[a]; ok {
		return s
	}
	return fmt.Sprintf("approximation(%d)", int(a))
}

// ParseApproximation maps a configuration string onto an Approximation.
// Matching ignores case and surrounding whitespace.
func ParseApproximation(s string) (Approximation, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for a, name := range approximationNames {
		if name == key {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown cylinder approximation %q (want one of %q, %q, %q, %q)",
		s, GuessAxis, FirstTwoPoints, Direction, FirstTwoDummyPoints)
}

// MarshalText implements encoding.TextMarshaler.
func (a Approximation) MarshalText() ([]byte, error) {
	if _, ok := approximationNames[a]; !ok {
		return nil, fmt.Errorf("unknown cylinder approximation %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Approximation) UnmarshalText(b []byte) error {
	v, err := ParseApproximation(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Candidate is one cylinder approximation: a circle fitted in the frame
// where the candidate axis is +Z.
type Candidate struct {
	Radius  float64
	CenterX float64
	CenterY float64
	Alpha   float64
	Beta    float64
	// Label records which strategy and axis produced the candidate.
	Label string
	// Stdev of the 2-D circle fit; lower is better.
	Stdev float64
}

// Rotation returns the frame rotation of the candidate.
func (c Candidate) Rotation() Rotation {
	return Rotation{Alpha: c.Alpha, Beta: c.Beta}
}

// CylinderInput carries the per-role inputs of a cylinder approximation.
type CylinderInput struct {
	Points      []geometry.Vec3
	DummyPoints []geometry.Vec3
	Direction   *geometry.Vec3
}

// CylinderCandidates generates the axis candidates for strategy and fits a
// circle for each. Every candidate that could be fitted is returned.
func CylinderCandidates(in CylinderInput, strategy Approximation) ([]Candidate, error) {
	axes, labels, err := candidateAxes(in, strategy)
	if err != nil {
		return nil, err
	}

	var (
		cands   []Candidate
		lastErr error
	)
	for i, axis := range axes {
		c, err := circleAboutAxis(in.Points, axis)
		if err != nil {
			lastErr = err
			continue
		}
		c.Label = labels[i]
		cands = append(cands, c)
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("no usable cylinder approximation for %q: %w", strategy, lastErr)
	}
	return cands, nil
}

func candidateAxes(in CylinderInput, strategy Approximation) ([]geometry.Vec3, []string, error) {
	switch strategy {
	case GuessAxis:
		pr, err := PrincipalAxes(in.Points)
		if err != nil {
			return nil, nil, err
		}
		return pr.Axes[:], []string{"guess axis 1", "guess axis 2", "guess axis 3"}, nil

	case FirstTwoPoints:
		axis, err := axisThrough(in.Points, "points")
		if err != nil {
			return nil, nil, err
		}
		return []geometry.Vec3{axis}, []string{FirstTwoPoints.String()}, nil

	case FirstTwoDummyPoints:
		axis, err := axisThrough(in.DummyPoints, "dummy points")
		if err != nil {
			return nil, nil, err
		}
		return []geometry.Vec3{axis}, []string{FirstTwoDummyPoints.String()}, nil

	case Direction:
		if in.Direction == nil {
			return nil, nil, fmt.Errorf("%w: approximation %q needs a direction input", fiterr.ErrDegenerateGeometry, strategy)
		}
		return []geometry.Vec3{*in.Direction}, []string{Direction.String()}, nil

	default:
		return nil, nil, fmt.Errorf("%w: approximation %v", fiterr.ErrNotApplicable, strategy)
	}
}

func axisThrough(pts []geometry.Vec3, role string) (geometry.Vec3, error) {
	if len(pts) < 2 {
		return geometry.Vec3{}, fmt.Errorf("%w: axis needs two %s, got %d", fiterr.ErrDegenerateGeometry, role, len(pts))
	}
	axis, n := pts[1].Sub(pts[0]).Normalize()
	if n == 0 {
		return geometry.Vec3{}, fmt.Errorf("%w: first two %s coincide", fiterr.ErrDegenerateGeometry, role)
	}
	return axis, nil
}

// circleAboutAxis rotates pts so axis maps onto +Z and fits a circle to
// the resulting X/Y coordinates.
func circleAboutAxis(pts []geometry.Vec3, axis geometry.Vec3) (Candidate, error) {
	rot, err := RotationToZ(axis)
	if err != nil {
		return Candidate{}, err
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		q := rot.Apply(p)
		xs[i], ys[i] = q.X, q.Y
	}

	c, err := FitCircle2D(xs, ys)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		Radius:  c.Radius,
		CenterX: c.CenterX,
		CenterY: c.CenterY,
		Alpha:   rot.Alpha,
		Beta:    rot.Beta,
		Stdev:   c.Stdev,
	}, nil
}

// Best returns the candidate with the lowest circle-fit stdev. Ties keep
// the earlier candidate. cands must not be empty.
func Best(cands []Candidate) Candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Stdev < best.Stdev {
			best = c
		}
	}
	return best
}
