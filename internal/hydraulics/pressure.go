package hydraulics

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput reports an input record that cannot describe a real installation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDomain reports parameters outside the domain of the pressure formulas.
	ErrDomain = errors.New("outside formula domain")
)

// Input holds the installation-specific values of one calculation.
type Input struct {
	TowerHeight      float64 `json:"tower_height"`
	TankHeight       float64 `json:"tank_height"`
	SupplyPipeLength float64 `json:"supply_pipe_length"`
	FittingCount     int     `json:"fitting_count"`
	HousePipeLength  float64 `json:"house_pipe_length"`
}

// Breakdown contains every intermediate value and per-stage pressure of the balance.
type Breakdown struct {
	WaterHeight    float64 `json:"water_height"`
	ElevationGain  float64 `json:"elevation_gain"`
	ReynoldsNumber float64 `json:"reynolds_number"`
	SupplyPipeLoss float64 `json:"supply_pipe_loss"`
	FittingsLoss   float64 `json:"fittings_loss"`
	ReductionLoss  float64 `json:"reduction_loss"`
	HousePipeLoss  float64 `json:"house_pipe_loss"`
}

// Stage is one pressure contribution, named for reports.
type Stage struct {
	Name     string
	Pressure float64
}

// Stages returns the pressure contributions in the order the water traverses them.
func (b Breakdown) Stages() []Stage {
	return []Stage{
		{Name: "Elevation gain", Pressure: b.ElevationGain},
		{Name: "Supply pipe", Pressure: b.SupplyPipeLoss},
		{Name: "Fittings", Pressure: b.FittingsLoss},
		{Name: "Pipe reduction", Pressure: b.ReductionLoss},
		{Name: "House pipe", Pressure: b.HousePipeLoss},
	}
}

// Totals contains roll-up values of the pressure balance.
type Totals struct {
	Pressure float64 `json:"pressure"`
}

// Result groups the full pressure output, including detailed breakdown and totals.
type Result struct {
	Breakdown Breakdown `json:"breakdown"`
	Totals    Totals    `json:"totals"`
}

// Validate checks that in describes a physically possible installation.
func (in Input) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"tower_height", in.TowerHeight},
		{"tank_height", in.TankHeight},
		{"supply_pipe_length", in.SupplyPipeLength},
		{"house_pipe_length", in.HousePipeLength},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidInput, f.name)
		}
	}
	if in.SupplyPipeLength < 0 {
		return fmt.Errorf("%w: supply_pipe_length must be >= 0", ErrInvalidInput)
	}
	if in.HousePipeLength < 0 {
		return fmt.Errorf("%w: house_pipe_length must be >= 0", ErrInvalidInput)
	}
	if in.FittingCount < 0 {
		return fmt.Errorf("%w: fitting_count must be >= 0", ErrInvalidInput)
	}
	return nil
}

// Calculate runs the pressure balance from the tank to the house connection.
// Stages are summed in flow order: elevation gain, supply pipe, fittings,
// pipe reduction, house pipe.
func Calculate(in Input, sys System) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	if err := sys.Validate(); err != nil {
		return Result{}, err
	}

	fluid := sys.Fluid
	supply := sys.Supply
	household := sys.Household

	waterHeight := WaterColumnHeight(in.TowerHeight, in.TankHeight)
	elevationGain := fluid.PressureGainFromWaterHeight(waterHeight)
	reynolds := fluid.ReynoldsNumber(supply.InnerDiameter, supply.Velocity)

	supplyPipeLoss := fluid.PressureLossFromPipe(supply.InnerDiameter, in.SupplyPipeLength, supply.FrictionFactor, supply.Velocity)
	fittingsLoss := fluid.PressureLossFromFittings(supply.Velocity, in.FittingCount)
	reductionLoss := fluid.PressureLossFromPipeReduction(supply.InnerDiameter, supply.Velocity, reynolds, household.InnerDiameter)
	housePipeLoss := fluid.PressureLossFromPipe(household.InnerDiameter, in.HousePipeLength, household.FrictionFactor, household.Velocity)

	pressure := elevationGain
	pressure += supplyPipeLoss
	pressure += fittingsLoss
	pressure += reductionLoss
	pressure += housePipeLoss

	if math.IsNaN(pressure) || math.IsInf(pressure, 0) {
		return Result{}, fmt.Errorf("%w: pressure is not finite", ErrDomain)
	}

	return Result{
		Breakdown: Breakdown{
			WaterHeight:    waterHeight,
			ElevationGain:  elevationGain,
			ReynoldsNumber: reynolds,
			SupplyPipeLoss: supplyPipeLoss,
			FittingsLoss:   fittingsLoss,
			ReductionLoss:  reductionLoss,
			HousePipeLoss:  housePipeLoss,
		},
		Totals: Totals{Pressure: pressure},
	}, nil
}
