package metrics

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Calculation outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeDomain  = "domain"
)

const (
	calculationsName = "waterflow_calculations_total"
	calculationsHelp = "Pressure calculations by outcome."
	lastPressureName = "waterflow_last_pressure_kpa"
	lastPressureHelp = "Pressure at the house connection of the last successful calculation."
)

var outcomes = []string{OutcomeOK, OutcomeInvalid, OutcomeDomain}

// Counters tracks calculation activity. The zero value is ready to use and
// safe for concurrent use.
type Counters struct {
	ok           atomic.Uint64
	invalid      atomic.Uint64
	domain       atomic.Uint64
	lastPressure atomic.Uint64 // math.Float64bits
}

// Observe records one calculation. pressure is only kept for OutcomeOK.
func (c *Counters) Observe(outcome string, pressure float64) {
	switch outcome {
	case OutcomeOK:
		c.ok.Add(1)
		c.lastPressure.Store(math.Float64bits(pressure))
	case OutcomeInvalid:
		c.invalid.Add(1)
	case OutcomeDomain:
		c.domain.Add(1)
	}
}

// Count returns the number of calculations recorded with outcome.
func (c *Counters) Count(outcome string) uint64 {
	switch outcome {
	case OutcomeOK:
		return c.ok.Load()
	case OutcomeInvalid:
		return c.invalid.Load()
	case OutcomeDomain:
		return c.domain.Load()
	}
	return 0
}

// LastPressure returns the pressure of the last successful calculation.
func (c *Counters) LastPressure() float64 {
	return math.Float64frombits(c.lastPressure.Load())
}

// Families snapshots the counters as Prometheus metric families.
func (c *Counters) Families() []*dto.MetricFamily {
	calc := &dto.MetricFamily{
		Name: ptr(calculationsName),
		Help: ptr(calculationsHelp),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, outcome := range outcomes {
		calc.Metric = append(calc.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: ptr("outcome"), Value: ptr(outcome)}},
			Counter: &dto.Counter{Value: ptr(float64(c.Count(outcome)))},
		})
	}

	last := &dto.MetricFamily{
		Name: ptr(lastPressureName),
		Help: ptr(lastPressureHelp),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{
			{Gauge: &dto.Gauge{Value: ptr(c.LastPressure())}},
		},
	}

	return []*dto.MetricFamily{calc, last}
}

// WriteText writes the counters in the Prometheus text exposition format.
func (c *Counters) WriteText(w io.Writer) error {
	for _, mf := range c.Families() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
