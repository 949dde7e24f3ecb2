// Package observations selects which measured points take part in a fit.
//
// Two ordered subsets are produced from the raw input: the usable
// observations (every valid point, each of which receives a display
// residual) and the in-use observations that actually enter the
// least-squares system after the opt-out flag and the face policy are
// applied.
package observations

import (
	"fmt"
	"sort"

	"github.com/banshee-data/geofit/internal/fit/fiterr"
	"github.com/banshee-data/geofit/internal/geometry"
)

// Policy controls the in-use selection.
type Policy struct {
	// LastPerFace disables all but the highest-ID observation within each
	// face group. Untagged observations are not affected.
	LastPerFace bool
}

// Set is the result of Filter.
type Set struct {
	AllUsable []geometry.Observation
	InUse     []geometry.Observation
}

// MinObservations returns the smallest in-use count a primitive can be
// fitted from.
func MinObservations(k geometry.Kind) int {
	switch k {
	case geometry.KindPoint:
		return 1
	case geometry.KindLine:
		return 2
	case geometry.KindPlane, geometry.KindCircle:
		return 3
	case geometry.KindSphere:
		return 4
	case geometry.KindCylinder:
		return 5
	default:
		return 0
	}
}

// Filter splits obs into usable and in-use subsets and writes the Used flag
// back onto every element of obs. Input order is preserved in both subsets.
func Filter(obs []geometry.Observation, pol Policy) Set {
	keep := make([]bool, len(obs))
	for i := range obs {
		o := &obs[i]
		keep[i] = o.Valid && o.ShouldBeUsed
	}

	if pol.LastPerFace {
		disableAllButLastPerFace(obs, keep)
	}

	var s Set
	for i := range obs {
		o := &obs[i]
		o.Used = keep[i]
		if !o.Valid {
			continue
		}
		s.AllUsable = append(s.AllUsable, *o)
		if o.Used {
			s.InUse = append(s.InUse, *o)
		}
	}
	return s
}

// disableAllButLastPerFace groups the kept observations by face, sorts each
// group by ID ascending and clears keep for every entry but the last.
func disableAllButLastPerFace(obs []geometry.Observation, keep []bool) {
	groups := make(map[string][]int)
	for i, o := range obs {
		if !keep[i] || o.Face == "" {
			continue
		}
		groups[o.Face] = append(groups[o.Face], i)
	}

	for _, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			return obs[idx[a]].ID < obs[idx[b]].ID
		})
		for _, i := range idx[:len(idx)-1] {
			keep[i] = false
		}
	}
}

// Require checks the in-use count against the minimum for k.
func (s Set) Require(k geometry.Kind) error {
	need := MinObservations(k)
	if len(s.InUse) < need {
		return fmt.Errorf("%w: %s needs at least %d observations in use, got %d",
			fiterr.ErrInsufficientData, k, need, len(s.InUse))
	}
	return nil
}

// InUseIDs returns the IDs of the in-use observations as a set.
func (s Set) InUseIDs() map[int]bool {
	ids := make(map[int]bool, len(s.InUse))
	for _, o := range s.InUse {
		ids[o.ID] = true
	}
	return ids
}
