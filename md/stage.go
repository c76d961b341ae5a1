package md

import "fmt"

// Stage is one phase of the equilibration cycle.
type Stage string

const (
	// Linear ramps the temperature from the starting value to the target.
	Linear Stage = "linear"
	// Nose holds the target temperature with a Nosé thermostat.
	Nose Stage = "nose"
	// NVE is constant-energy production.
	NVE Stage = "nve"
)

// Next returns the stage that follows s, and whether the cycle wraps.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case Linear:
		return Nose, false
	case Nose:
		return NVE, false
	default:
		return Linear, true
	}
}

func (s Stage) Valid() bool {
	return s == Linear || s == Nose || s == NVE
}

// DirName names the directory of a stage within a cycle, e.g. "2-nose".
func DirName(cycle int, s Stage) string {
	return fmt.Sprintf("%d-%s", cycle, s)
}
