package trace

import (
	"fmt"
	"sort"
	"time"

	"repweeks/internal/model"
)

// SumTraces merges the given series by timestamp, summing values. The result
// is sorted by stamp; series need not share a grid.
func SumTraces(traces []model.Trace) model.Trace {
	sums := make(map[time.Time]float64)
	for _, tr := range traces {
		for _, p := range tr {
			sums[p.Timestamp] += p.Value
		}
	}
	out := make(model.Trace, 0, len(sums))
	for ts, v := range sums {
		out = append(out, model.TracePoint{Timestamp: ts, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// FleetGeneration converts per-unit capacity-factor traces to megawatts and
// sums them across the solar and wind fleet. A fleet holding no solar or
// wind units yields a zero series on the reference stamps, so residual
// demand degrades to raw demand instead of failing. A renewable unit without
// a trace is an error.
func FleetGeneration(fleet []model.Generator, units map[string]model.Trace, reference model.Trace) (model.Trace, error) {
	var renewables []model.Generator
	for _, g := range fleet {
		if model.RenewableFuels[g.Fuel] {
			renewables = append(renewables, g)
		}
	}
	if len(renewables) == 0 {
		return ZeroTrace(reference), nil
	}

	scaled := make([]model.Trace, 0, len(renewables))
	for _, g := range renewables {
		ut, ok := units[g.ID]
		if !ok {
			return nil, fmt.Errorf("no unit trace for renewable generator %s", g.ID)
		}
		s := make(model.Trace, len(ut))
		for i, p := range ut {
			s[i] = model.TracePoint{Timestamp: p.Timestamp, Value: p.Value * g.CapacityMW}
		}
		scaled = append(scaled, s)
	}
	return SumTraces(scaled), nil
}

// ZeroTrace returns a zero-valued series on the reference stamps.
func ZeroTrace(reference model.Trace) model.Trace {
	out := make(model.Trace, len(reference))
	for i, p := range reference {
		out[i] = model.TracePoint{Timestamp: p.Timestamp}
	}
	return out
}

// Residual subtracts renewable generation from demand on the stamps both
// series share. Demand stamps with no matching generation are dropped;
// negative results stand (generation may exceed demand).
func Residual(demand, renewable model.Trace) model.Trace {
	gen := make(map[time.Time]float64, len(renewable))
	for _, p := range renewable {
		gen[p.Timestamp] = p.Value
	}
	out := make(model.Trace, 0, len(demand))
	for _, p := range demand {
		g, ok := gen[p.Timestamp]
		if !ok {
			continue
		}
		out = append(out, model.TracePoint{Timestamp: p.Timestamp, Value: p.Value - g})
	}
	return out
}
