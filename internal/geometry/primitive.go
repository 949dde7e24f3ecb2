package geometry

import "fmt"

// Kind identifies a primitive variant.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
	KindPlane
	KindCircle
	KindSphere
	KindCylinder
)

// String returns the lower-case primitive name.
func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPlane:
		return "plane"
	case KindCircle:
		return "circle"
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a primitive name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for k := KindPoint; k <= KindCylinder; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown primitive %q", s)
}

// Primitive is the closed set of fittable shapes. The fitting facade
// type-switches on the concrete variant.
type Primitive interface {
	Kind() Kind
	Stat() *Statistic
	IsSolved() bool
	sealed()
}

// New returns an empty primitive of kind k.
func New(k Kind) (Primitive, error) {
	switch k {
	case KindPoint:
		return &Point{}, nil
	case KindLine:
		return &Line{}, nil
	case KindPlane:
		return &Plane{}, nil
	case KindCircle:
		return &Circle{}, nil
	case KindSphere:
		return &Sphere{}, nil
	case KindCylinder:
		return &Cylinder{}, nil
	default:
		return nil, fmt.Errorf("unknown primitive kind %d", int(k))
	}
}

// base carries the state common to every variant.
type base struct {
	Solved    bool      `json:"solved"`
	Statistic Statistic `json:"statistic"`
}

func (b *base) Stat() *Statistic { return &b.Statistic }
func (b *base) IsSolved() bool   { return b.Solved }
func (b *base) sealed()          {}

// Point is a single fitted position.
type Point struct {
	base
	Position Vec3 `json:"position"`
}

// Line is an infinite line through Position along the unit Direction.
type Line struct {
	base
	Position  Vec3 `json:"position"`
	Direction Vec3 `json:"direction"`
}

// Plane passes through Position with unit normal Direction.
type Plane struct {
	base
	Position  Vec3 `json:"position"`
	Direction Vec3 `json:"direction"`
}

// Circle lies in the plane through Position with unit normal Direction.
type Circle struct {
	base
	Position  Vec3    `json:"position"`
	Direction Vec3    `json:"direction"`
	Radius    float64 `json:"radius"`
}

// Sphere is centred on Position.
type Sphere struct {
	base
	Position Vec3    `json:"position"`
	Radius   float64 `json:"radius"`
}

// Cylinder has its axis through Position along the unit Direction.
type Cylinder struct {
	base
	Position  Vec3    `json:"position"`
	Direction Vec3    `json:"direction"`
	Radius    float64 `json:"radius"`
}

func (*Point) Kind() Kind    { return KindPoint }
func (*Line) Kind() Kind     { return KindLine }
func (*Plane) Kind() Kind    { return KindPlane }
func (*Circle) Kind() Kind   { return KindCircle }
func (*Sphere) Kind() Kind   { return KindSphere }
func (*Cylinder) Kind() Kind { return KindCylinder }

// MarkSolved records a successful fit together with its statistic.
func (b *base) MarkSolved(s Statistic) {
	b.Statistic = s
	b.Solved = true
}
