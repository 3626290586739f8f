package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/waterflow/internal/hydraulics"
)

// FormatKPa renders a pressure with one decimal place. The exact binary value
// is rounded, ties to even, so 94.25 prints as 94.2 and 0.15 as 0.1.
// Non-finite values render as nan, inf or -inf.
func FormatKPa(pressure float64) string {
	if s, ok := nonFinite(pressure); ok {
		return s
	}
	return strconv.FormatFloat(pressure, 'f', 1, 64)
}

func nonFinite(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return "nan", true
	case math.IsInf(v, 1):
		return "inf", true
	case math.IsInf(v, -1):
		return "-inf", true
	}
	return "", false
}

// number renders v at its shortest decimal form.
func number(v float64) string {
	if s, ok := nonFinite(v); ok {
		return s
	}
	return decimal.NewFromFloat(v).String()
}

// Line is the one-line summary printed by the CLI.
func Line(pressure float64) string {
	return fmt.Sprintf("Pressure at house: %s kilopascals", FormatKPa(pressure))
}

// Text renders a stored calculation as a plain-text report.
func Text(title string, in hydraulics.Input, result hydraulics.Result) string {
	var b strings.Builder

	if title != "" {
		fmt.Fprintf(&b, "%s\n\n", title)
	}

	b.WriteString("Inputs:\n")
	fmt.Fprintf(&b, "- Tower height: %s m\n", number(in.TowerHeight))
	fmt.Fprintf(&b, "- Tank height: %s m\n", number(in.TankHeight))
	fmt.Fprintf(&b, "- Supply pipe length: %s m\n", number(in.SupplyPipeLength))
	fmt.Fprintf(&b, "- 90° fittings: %d\n", in.FittingCount)
	fmt.Fprintf(&b, "- House pipe length: %s m\n", number(in.HousePipeLength))

	b.WriteString("\nStages:\n")
	for _, stage := range result.Breakdown.Stages() {
		fmt.Fprintf(&b, "- %s: %s kPa\n", stage.Name, FormatKPa(stage.Pressure))
	}
	reynolds, ok := nonFinite(result.Breakdown.ReynoldsNumber)
	if !ok {
		reynolds = decimal.NewFromFloat(result.Breakdown.ReynoldsNumber).StringFixed(0)
	}
	fmt.Fprintf(&b, "\nReynolds number (supply): %s\n", reynolds)
	fmt.Fprintf(&b, "\n%s\n", Line(result.Totals.Pressure))

	return b.String()
}
