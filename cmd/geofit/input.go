package main

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/geofit/internal/fit"
	"github.com/banshee-data/geofit/internal/fsutil"
	"github.com/banshee-data/geofit/internal/geometry"
)

// maxInputSize bounds the observation file (16MB).
const maxInputSize = 16 * 1024 * 1024

// inputFile is the JSON observation file read by geofit:
//
//	{
//	  "points": [{"id": 1, "position": {"x": 0, "y": 0, "z": 1}, "face": "a"}, ...],
//	  "dummy_points": [...],
//	  "direction": {"x": 0, "y": 0, "z": 1}
//	}
//
// valid and should_be_used default to true; a missing id defaults to the
// 1-based position within its list.
type inputFile struct {
	Points      []inputObservation `json:"points"`
	DummyPoints []inputObservation `json:"dummy_points,omitempty"`
	Direction   *geometry.Vec3     `json:"direction,omitempty"`
}

type inputObservation struct {
	ID           int           `json:"id,omitempty"`
	Position     geometry.Vec3 `json:"position"`
	Valid        *bool         `json:"valid,omitempty"`
	ShouldBeUsed *bool         `json:"should_be_used,omitempty"`
	Face         string        `json:"face,omitempty"`
}

func (in inputObservation) observation(index int) geometry.Observation {
	id := in.ID
	if id == 0 {
		id = index + 1
	}
	o := geometry.NewObservation(id, in.Position)
	if in.Valid != nil {
		o.Valid = *in.Valid
	}
	if in.ShouldBeUsed != nil {
		o.ShouldBeUsed = *in.ShouldBeUsed
	}
	o.Face = in.Face
	return o
}

func observations(in []inputObservation) ([]geometry.Observation, error) {
	out := make([]geometry.Observation, len(in))
	seen := make(map[int]bool, len(in))
	for i, o := range in {
		out[i] = o.observation(i)
		if !out[i].Position.IsFinite() {
			return nil, fmt.Errorf("observation %d has a non-finite position", out[i].ID)
		}
		if seen[out[i].ID] {
			return nil, fmt.Errorf("duplicate observation id %d", out[i].ID)
		}
		seen[out[i].ID] = true
	}
	return out, nil
}

// loadInputs reads and converts an observation file.
func loadInputs(fsys fsutil.FileSystem, path string) (fit.Inputs, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return fit.Inputs{}, fmt.Errorf("failed to stat input file: %w", err)
	}
	if info.Size() > maxInputSize {
		return fit.Inputs{}, fmt.Errorf("input file too large: %d bytes (max %d)", info.Size(), maxInputSize)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return fit.Inputs{}, fmt.Errorf("failed to read input file: %w", err)
	}

	var raw inputFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return fit.Inputs{}, fmt.Errorf("failed to parse input JSON: %w", err)
	}

	points, err := observations(raw.Points)
	if err != nil {
		return fit.Inputs{}, fmt.Errorf("points: %w", err)
	}
	dummies, err := observations(raw.DummyPoints)
	if err != nil {
		return fit.Inputs{}, fmt.Errorf("dummy_points: %w", err)
	}
	return fit.Inputs{Points: points, DummyPoints: dummies, Direction: raw.Direction}, nil
}
