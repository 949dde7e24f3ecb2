package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/geofit/internal/fit/approx"
	"github.com/banshee-data/geofit/internal/fsutil"
)

// DefaultConfigPath is the path to the canonical fit defaults file.
const DefaultConfigPath = "config/fit.defaults.json"

// Rectify senses accepted by rectify_sense.
const (
	SenseReference = "reference"
	SenseInverse   = "inverse"
)

// FitConfig is the root configuration of a fit run. Every field is
// optional; the Get* methods supply defaults for omitted values.
type FitConfig struct {
	// Cylinder axis approximation: "guess axis", "first two points",
	// "direction" or "first two dummy points".
	Approximation *string `json:"approximation,omitempty"`

	// Observation policy
	LastPointPerFace *bool `json:"last_point_per_face,omitempty"`

	// Adjustment params
	SphereMaxIterations   *int     `json:"sphere_max_iterations,omitempty"`
	CylinderMaxIterations *int     `json:"cylinder_max_iterations,omitempty"`
	ConvergenceThreshold  *float64 `json:"convergence_threshold,omitempty"`
	ArmijoPerturbation    *bool    `json:"armijo_perturbation,omitempty"`
	RandomSeed            *int64   `json:"random_seed,omitempty"`

	// Plane/line output params
	PlaneShiftOffset *float64 `json:"plane_shift_offset,omitempty"`
	RectifySense     *string  `json:"rectify_sense,omitempty"` // "reference" or "inverse"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyFitConfig returns a FitConfig with all fields unset.
func EmptyFitConfig() *FitConfig {
	return &FitConfig{}
}

// DefaultFitConfig returns a FitConfig with every field set to its default.
func DefaultFitConfig() *FitConfig {
	return &FitConfig{
		Approximation:         ptrString(approx.GuessAxis.String()),
		LastPointPerFace:      ptrBool(false),
		SphereMaxIterations:   ptrInt(100),
		CylinderMaxIterations: ptrInt(1000),
		ConvergenceThreshold:  ptrFloat64(1e-13),
		ArmijoPerturbation:    ptrBool(true),
		RandomSeed:            ptrInt64(1),
		PlaneShiftOffset:      ptrFloat64(0),
		RectifySense:          ptrString(SenseReference),
	}
}

// LoadFitConfig loads a FitConfig from a JSON file on disk.
func LoadFitConfig(path string) (*FitConfig, error) {
	return LoadFitConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadFitConfigFS loads a FitConfig from fsys. The file must have a .json
// extension and be at most 1MB. Fields omitted from the file keep their
// defaults, so partial configs are safe.
func LoadFitConfigFS(fsys fsutil.FileSystem, path string) (*FitConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyFitConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *FitConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/fit/
		"../../../../" + DefaultConfigPath, // from internal/fit/adjust/
	}
	for _, path := range candidates {
		if cfg, err := LoadFitConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Enumerated
// strings are checked here so a bad value fails at load time rather than
// on the first fit.
func (c *FitConfig) Validate() error {
	if c.Approximation != nil {
		if _, err := approx.ParseApproximation(*c.Approximation); err != nil {
			return fmt.Errorf("approximation: %w", err)
		}
	}

	if c.SphereMaxIterations != nil && *c.SphereMaxIterations <= 0 {
		return fmt.Errorf("sphere_max_iterations must be positive, got %d", *c.SphereMaxIterations)
	}
	if c.CylinderMaxIterations != nil && *c.CylinderMaxIterations <= 0 {
		return fmt.Errorf("cylinder_max_iterations must be positive, got %d", *c.CylinderMaxIterations)
	}

	if c.ConvergenceThreshold != nil {
		if v := *c.ConvergenceThreshold; !(v > 0) || v >= 1 {
			return fmt.Errorf("convergence_threshold must be in (0, 1), got %g", v)
		}
	}

	if c.RectifySense != nil {
		switch strings.ToLower(strings.TrimSpace(*c.RectifySense)) {
		case SenseReference, SenseInverse:
		default:
			return fmt.Errorf("rectify_sense must be %q or %q, got %q", SenseReference, SenseInverse, *c.RectifySense)
		}
	}

	return nil
}

// GetApproximation returns the cylinder approximation strategy or the
// default. Call Validate first; an invalid value falls back to the default.
func (c *FitConfig) GetApproximation() approx.Approximation {
	if c.Approximation == nil {
		return approx.GuessAxis
	}
	a, err := approx.ParseApproximation(*c.Approximation)
	if err != nil {
		return approx.GuessAxis
	}
	return a
}

// GetLastPointPerFace returns the last_point_per_face value or the default.
func (c *FitConfig) GetLastPointPerFace() bool {
	if c.LastPointPerFace == nil {
		return false
	}
	return *c.LastPointPerFace
}

// GetSphereMaxIterations returns the sphere_max_iterations value or the default.
func (c *FitConfig) GetSphereMaxIterations() int {
	if c.SphereMaxIterations == nil {
		return 100
	}
	return *c.SphereMaxIterations
}

// GetCylinderMaxIterations returns the cylinder_max_iterations value or the default.
func (c *FitConfig) GetCylinderMaxIterations() int {
	if c.CylinderMaxIterations == nil {
		return 1000
	}
	return *c.CylinderMaxIterations
}

// GetConvergenceThreshold returns the convergence_threshold value or the default.
func (c *FitConfig) GetConvergenceThreshold() float64 {
	if c.ConvergenceThreshold == nil {
		return 1e-13
	}
	return *c.ConvergenceThreshold
}

// GetArmijoPerturbation returns the armijo_perturbation value or the default.
func (c *FitConfig) GetArmijoPerturbation() bool {
	if c.ArmijoPerturbation == nil {
		return true
	}
	return *c.ArmijoPerturbation
}

// GetRandomSeed returns the random_seed value or the default.
func (c *FitConfig) GetRandomSeed() int64 {
	if c.RandomSeed == nil {
		return 1
	}
	return *c.RandomSeed
}

// GetPlaneShiftOffset returns the plane_shift_offset value or the default.
func (c *FitConfig) GetPlaneShiftOffset() float64 {
	if c.PlaneShiftOffset == nil {
		return 0
	}
	return *c.PlaneShiftOffset
}

// GetInverseSense reports whether rectify_sense is "inverse".
func (c *FitConfig) GetInverseSense() bool {
	if c.RectifySense == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(*c.RectifySense), SenseInverse)
}
