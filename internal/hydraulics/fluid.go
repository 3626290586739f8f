package hydraulics

import "math"

// Fluid holds the physical properties used by every pressure formula.
type Fluid struct {
	Density          float64 `json:"density" yaml:"density"`                     // kg/m^3
	DynamicViscosity float64 `json:"dynamic_viscosity" yaml:"dynamic_viscosity"` // Pa*s
	Gravity          float64 `json:"gravity" yaml:"gravity"`                     // m/s^2
}

// Water is fresh water at roughly 20 °C under standard gravity.
var Water = Fluid{
	Density:          998.2,
	DynamicViscosity: 0.0010016,
	Gravity:          9.80665,
}

// fittingLossCoefficient is the minor loss coefficient of one 90° fitting.
const fittingLossCoefficient = 0.04

// WaterColumnHeight returns the effective head of a tank standing on a tower,
// measured at the vertical midpoint of the tank.
func WaterColumnHeight(towerHeight, tankHeight float64) float64 {
	return towerHeight + tankHeight/2
}

// PressureGainFromWaterHeight returns the static pressure of a water column in kPa.
func PressureGainFromWaterHeight(height float64) float64 {
	return Water.PressureGainFromWaterHeight(height)
}

// PressureLossFromPipe returns the Darcy-Weisbach friction loss of a water pipe in kPa.
func PressureLossFromPipe(diameter, length, frictionFactor, velocity float64) float64 {
	return Water.PressureLossFromPipe(diameter, length, frictionFactor, velocity)
}

// PressureLossFromFittings returns the minor loss of fittingCount 90° fittings in kPa.
func PressureLossFromFittings(velocity float64, fittingCount int) float64 {
	return Water.PressureLossFromFittings(velocity, fittingCount)
}

// ReynoldsNumber returns the Reynolds number of water flowing through a pipe.
func ReynoldsNumber(hydraulicDiameter, velocity float64) float64 {
	return Water.ReynoldsNumber(hydraulicDiameter, velocity)
}

// PressureLossFromPipeReduction returns the loss of a sudden contraction from
// largerDiameter to smallerDiameter in kPa.
func PressureLossFromPipeReduction(largerDiameter, velocity, reynolds, smallerDiameter float64) float64 {
	return Water.PressureLossFromPipeReduction(largerDiameter, velocity, reynolds, smallerDiameter)
}

// PressureGainFromWaterHeight returns density*g*h converted to kPa.
func (f Fluid) PressureGainFromWaterHeight(height float64) float64 {
	return f.Density * f.Gravity * height / 1000
}

// PressureLossFromPipe returns the friction loss as a negative kPa value.
// A zero diameter yields a non-finite result.
func (f Fluid) PressureLossFromPipe(diameter, length, frictionFactor, velocity float64) float64 {
	return -(frictionFactor * length * f.Density * velocity * velocity) / (2 * diameter * 1000)
}

// PressureLossFromFittings returns the aggregated fitting loss as a negative kPa value.
func (f Fluid) PressureLossFromFittings(velocity float64, fittingCount int) float64 {
	return -(fittingLossCoefficient * f.Density * velocity * velocity * float64(fittingCount)) / 2000
}

// ReynoldsNumber returns density*D*v/mu.
func (f Fluid) ReynoldsNumber(hydraulicDiameter, velocity float64) float64 {
	return f.Density * hydraulicDiameter * velocity / f.DynamicViscosity
}

// PressureLossFromPipeReduction computes k = 0.1 + 50/Re*(D1/D2)^4 - 1 and
// returns -(k*density*v^2)/2000. The coefficient is kept exactly as the
// empirical source states it; for turbulent flow k is negative and the
// "loss" comes out as a gain.
func (f Fluid) PressureLossFromPipeReduction(largerDiameter, velocity, reynolds, smallerDiameter float64) float64 {
	k := 0.1 + 50/reynolds*math.Pow(largerDiameter/smallerDiameter, 4) - 1
	return -(k * f.Density * velocity * velocity) / 2000
}
