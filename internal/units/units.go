// Package units provides shared constants and conversion for length units.
package units

import "strings"

// Unit constants
const (
	Metres      = "m"
	Millimetres = "mm"
	Micrometres = "um"
	Inches      = "in"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Metres, Millimetres, Micrometres, Inches}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// LengthFactor returns the multiplier from metres to the target unit.
// Unknown units map to 1 (metres).
func LengthFactor(targetUnits string) float64 {
	switch targetUnits {
	case Millimetres:
		return 1e3
	case Micrometres:
		return 1e6
	case Inches:
		return 1 / 0.0254
	default:
		return 1
	}
}

// ConvertLength converts a length in metres to the target unit.
// Observation coordinates are taken to be metres.
func ConvertLength(metres float64, targetUnits string) float64 {
	return metres * LengthFactor(targetUnits)
}
