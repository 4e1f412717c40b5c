package grid

import (
	"fmt"
	"math"
	"sort"
	"time"

	"repweeks/internal/model"
	"repweeks/internal/temporal"
)

// BuildSnapshots constructs the snapshot grid covering model years
// [startYear, endYear] at the given resolution. Stamps are period-ending:
// the first sits one step after the horizon opens, the last exactly on the
// horizon end.
func BuildSnapshots(startYear, endYear int, yt model.YearType, resolutionMin int) (model.SnapshotSet, error) {
	if resolutionMin <= 0 {
		return nil, fmt.Errorf("resolution must be positive, got %d min", resolutionMin)
	}
	if startYear > endYear {
		return nil, fmt.Errorf("start year %d is after end year %d", startYear, endYear)
	}

	start := temporal.YearStart(startYear, yt)
	end := temporal.YearStart(endYear+1, yt)
	step := time.Duration(resolutionMin) * time.Minute

	snaps := make(model.SnapshotSet, 0, int(end.Sub(start)/step))
	for ts := start.Add(step); !ts.After(end); ts = ts.Add(step) {
		snaps = append(snaps, model.Snapshot{Timestamp: ts})
	}
	return snaps, nil
}

// TagInvestmentPeriods maps every snapshot to the investment period covering
// its model year: the greatest period start not after that year. A snapshot
// falling before the first period fails the grid.
func TagInvestmentPeriods(snaps model.SnapshotSet, periods []int, yt model.YearType) (model.SnapshotSet, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("no investment periods given")
	}
	sorted := append([]int(nil), periods...)
	sort.Ints(sorted)

	out := make(model.SnapshotSet, len(snaps))
	for i, s := range snaps {
		y := temporal.LabelYear(s.Timestamp, yt)
		idx := sort.SearchInts(sorted, y+1) - 1
		if idx < 0 {
			return nil, &temporal.DataError{
				Series: "snapshots",
				Message: fmt.Sprintf("investment periods do not cover the modelling window: earliest unmapped timestamp %s, earliest period %d",
					s.Timestamp.Format("2006-01-02 15:04:05"), sorted[0]),
			}
		}
		out[i] = model.Snapshot{Timestamp: s.Timestamp, InvestmentPeriod: sorted[idx]}
	}
	return out, nil
}

// PeriodWeighting carries the optimisation weights of one investment period.
type PeriodWeighting struct {
	Period    int
	Years     int
	Objective float64
}

// PeriodWeightings computes per-period year counts and discounted objective
// weights. Each period runs to the next period start, the last to the year
// after endYear; discounting is annual, anchored at the first period.
func PeriodWeightings(periods []int, endYear int, discountRate float64) ([]PeriodWeighting, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("no investment periods given")
	}
	sorted := append([]int(nil), periods...)
	sort.Ints(sorted)
	if last := sorted[len(sorted)-1]; last > endYear {
		return nil, fmt.Errorf("investment period %d starts after end year %d", last, endYear)
	}

	out := make([]PeriodWeighting, 0, len(sorted))
	for i, p := range sorted {
		next := endYear + 1
		if i+1 < len(sorted) {
			next = sorted[i+1]
		}
		years := next - p
		if years <= 0 {
			return nil, fmt.Errorf("duplicate investment period %d", p)
		}

		objective := 0.0
		for t := p - sorted[0]; t < p-sorted[0]+years; t++ {
			objective += 1 / math.Pow(1+discountRate, float64(t))
		}
		out = append(out, PeriodWeighting{Period: p, Years: years, Objective: objective})
	}
	return out, nil
}
