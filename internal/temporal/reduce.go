package temporal

import (
	"fmt"
	"time"

	"repweeks/internal/model"
	"repweeks/internal/trace"
)

// Request describes one reduction run. Criteria and FixedWeeks may each be
// empty; with both empty the snapshot grid passes through unfiltered.
type Request struct {
	Criteria   []model.Criterion
	FixedWeeks []int
	YearType   model.YearType
	StartYear  int
	EndYear    int
}

// Inputs carries the aggregated series and snapshot grid a run consumes.
// Renewable is nil when no renewable generation data exists.
type Inputs struct {
	Demand    model.Trace
	Renewable model.Trace
	Snapshots model.SnapshotSet
}

// Result is the outcome of one reduction run.
type Result struct {
	Weeks     []model.SelectedWeek
	Intervals []model.Interval
	Snapshots model.SnapshotSet
}

// Reduce runs the pipeline: validate inputs, assign weeks, aggregate
// metrics, select extremal weeks, union with fixed weeks, filter the grid.
// Empty demand or an empty grid produce an empty result, not an error.
func Reduce(req Request, in Inputs) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := ValidateTrace("demand", in.Demand); err != nil {
		return nil, err
	}
	if in.Renewable != nil {
		if err := ValidateTrace("renewable", in.Renewable); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	if len(req.Criteria) == 0 && len(req.FixedWeeks) == 0 {
		res.Snapshots = append(model.SnapshotSet{}, in.Snapshots...)
		return res, nil
	}

	var intervals []model.Interval
	if len(req.Criteria) > 0 {
		weeks, err := namedWeeks(req, in)
		if err != nil {
			return nil, err
		}
		res.Weeks = weeks
		intervals = WeekIntervals(weeks)
	}
	if len(req.FixedWeeks) > 0 {
		fixed, err := FixedWeekIntervals(req.FixedWeeks, req.YearType, req.StartYear, req.EndYear)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, fixed...)
	}

	res.Intervals = dedupIntervals(intervals)
	res.Snapshots = FilterSnapshots(in.Snapshots, res.Intervals)
	return res, nil
}

func namedWeeks(req Request, in Inputs) ([]model.SelectedWeek, error) {
	if err := ValidateCriteria(req.Criteria); err != nil {
		return nil, err
	}
	needResidual := NeedsResidual(req.Criteria)
	if needResidual && in.Renewable == nil {
		return nil, &ConfigurationError{
			Field:   "named_representative_weeks",
			Message: "renewable generation inputs required for residual demand criteria",
		}
	}

	assigned := AssignWeeks(in.Demand, req.YearType, req.StartYear, req.EndYear)
	demandTable := WeekMetricsTable(assigned, req.YearType)

	var residualTable []model.WeekMetrics
	if needResidual {
		residual := trace.Residual(in.Demand, in.Renewable)
		residualTable = WeekMetricsTable(AssignWeeks(residual, req.YearType, req.StartYear, req.EndYear), req.YearType)
	}
	return SelectWeeks(req.Criteria, demandTable, residualTable)
}

// ValidateTrace checks that series stamps are strictly increasing.
func ValidateTrace(name string, tr model.Trace) error {
	for i := 1; i < len(tr); i++ {
		prev, cur := tr[i-1].Timestamp, tr[i].Timestamp
		if cur.Equal(prev) {
			return &DataError{
				Series:  name,
				Message: fmt.Sprintf("duplicate timestamp %s", cur.Format(time.RFC3339)),
			}
		}
		if cur.Before(prev) {
			return &DataError{
				Series:  name,
				Message: fmt.Sprintf("timestamps not increasing at %s", cur.Format(time.RFC3339)),
			}
		}
	}
	return nil
}

func validateRequest(req Request) error {
	switch req.YearType {
	case model.YearCalendar, model.YearFinancial:
	default:
		return &ConfigurationError{
			Field:   "year_type",
			Message: fmt.Sprintf("unknown year type %q; supported values: calendar, fy", req.YearType),
		}
	}
	if req.StartYear > req.EndYear {
		return &ConfigurationError{
			Field:   "start_year",
			Message: fmt.Sprintf("start year %d is after end year %d", req.StartYear, req.EndYear),
		}
	}
	return nil
}

func dedupIntervals(ivs []model.Interval) []model.Interval {
	seen := make(map[model.Interval]bool, len(ivs))
	out := make([]model.Interval, 0, len(ivs))
	for _, iv := range ivs {
		if seen[iv] {
			continue
		}
		seen[iv] = true
		out = append(out, iv)
	}
	return out
}
