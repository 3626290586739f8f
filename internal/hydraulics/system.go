package hydraulics

import "fmt"

// PipeMaterial describes one pipe segment of the supply line.
type PipeMaterial struct {
	Name           string  `json:"name" yaml:"name"`
	InnerDiameter  float64 `json:"inner_diameter" yaml:"inner_diameter"`   // m
	FrictionFactor float64 `json:"friction_factor" yaml:"friction_factor"` // unitless
	Velocity       float64 `json:"velocity" yaml:"velocity"`               // m/s
}

// System is the fixed part of an installation: the fluid and the two pipe
// segments between the tank and the house.
type System struct {
	Fluid     Fluid        `json:"fluid" yaml:"fluid"`
	Supply    PipeMaterial `json:"supply" yaml:"supply"`
	Household PipeMaterial `json:"household" yaml:"household"`
}

// PVCSchedule80 is the default supply pipe from the tank to the lot.
var PVCSchedule80 = PipeMaterial{
	Name:           "PVC schedule 80",
	InnerDiameter:  0.28687,
	FrictionFactor: 0.013,
	Velocity:       1.65,
}

// HDPESDR11 is the default pipe from the lot to the house.
var HDPESDR11 = PipeMaterial{
	Name:           "HDPE SDR11",
	InnerDiameter:  0.048692,
	FrictionFactor: 0.018,
	Velocity:       1.75,
}

// DefaultSystem returns water flowing from a PVC schedule 80 supply pipe into
// an HDPE SDR11 house pipe.
func DefaultSystem() System {
	return System{
		Fluid:     Water,
		Supply:    PVCSchedule80,
		Household: HDPESDR11,
	}
}

// Validate checks the fluid and pipe parameters against the formula domains.
// The supply velocity must be positive because the reduction loss divides by
// the supply Reynolds number.
func (s System) Validate() error {
	if s.Fluid.Density <= 0 {
		return fmt.Errorf("%w: fluid density must be > 0", ErrDomain)
	}
	if s.Fluid.DynamicViscosity <= 0 {
		return fmt.Errorf("%w: fluid dynamic viscosity must be > 0", ErrDomain)
	}
	if err := s.Supply.validate("supply"); err != nil {
		return err
	}
	if err := s.Household.validate("household"); err != nil {
		return err
	}
	if s.Supply.Velocity == 0 {
		return fmt.Errorf("%w: supply velocity must be > 0", ErrDomain)
	}
	return nil
}

func (m PipeMaterial) validate(segment string) error {
	if m.InnerDiameter <= 0 {
		return fmt.Errorf("%w: %s inner diameter must be > 0", ErrDomain, segment)
	}
	if m.FrictionFactor < 0 {
		return fmt.Errorf("%w: %s friction factor must be >= 0", ErrDomain, segment)
	}
	if m.Velocity < 0 {
		return fmt.Errorf("%w: %s velocity must be >= 0", ErrDomain, segment)
	}
	return nil
}
