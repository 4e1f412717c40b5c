package temporal

import (
	"fmt"
	"strings"

	"repweeks/internal/model"
)

// ValidateCriteria checks every requested criterion against the registry.
func ValidateCriteria(criteria []model.Criterion) error {
	var unknown []string
	for _, c := range criteria {
		if _, ok := model.Criteria[c]; !ok {
			unknown = append(unknown, string(c))
		}
	}
	if len(unknown) > 0 {
		return &ConfigurationError{
			Field: "named_representative_weeks",
			Message: fmt.Sprintf("unsupported named weeks: %s; supported values: %s",
				strings.Join(unknown, ", "), strings.Join(model.CriterionNames(), ", ")),
		}
	}
	return nil
}

// NeedsResidual reports whether any requested criterion scores the residual
// series.
func NeedsResidual(criteria []model.Criterion) bool {
	for _, c := range criteria {
		if model.Criteria[c].Series == model.SeriesResidual {
			return true
		}
	}
	return false
}

// SelectWeeks picks, per requested criterion and per model year present in
// the relevant table, the single extremal week. Ties go to the earliest week
// start. The result is the union across criteria in first-selected order,
// each week carrying every criterion that chose it. Tables must come from
// WeekMetricsTable (year/week sorted); residual may be nil when no
// residual criterion is requested.
func SelectWeeks(criteria []model.Criterion, demand, residual []model.WeekMetrics) ([]model.SelectedWeek, error) {
	if err := ValidateCriteria(criteria); err != nil {
		return nil, err
	}

	requested := make([]model.Criterion, 0, len(criteria))
	seen := make(map[model.Criterion]bool, len(criteria))
	for _, c := range criteria {
		if !seen[c] {
			seen[c] = true
			requested = append(requested, c)
		}
	}

	out := make([]model.SelectedWeek, 0, len(requested))
	index := make(map[model.WeekKey]int)
	for _, c := range requested {
		spec := model.Criteria[c]
		table := demand
		if spec.Series == model.SeriesResidual {
			if residual == nil {
				return nil, &ConfigurationError{
					Field:   "named_representative_weeks",
					Message: fmt.Sprintf("criterion %s requires renewable generation inputs for residual demand", c),
				}
			}
			table = residual
		}
		for _, wm := range extremalPerYear(table, spec) {
			if i, ok := index[wm.WeekKey]; ok {
				out[i].Criteria = append(out[i].Criteria, c)
				continue
			}
			index[wm.WeekKey] = len(out)
			out = append(out, model.SelectedWeek{
				WeekKey:   wm.WeekKey,
				WeekStart: wm.WeekStart,
				Criteria:  []model.Criterion{c},
			})
		}
	}
	return out, nil
}

// extremalPerYear walks a year/week sorted table keeping the best week per
// year. Strict improvement only, so the earliest week wins metric ties.
func extremalPerYear(table []model.WeekMetrics, spec model.CriterionSpec) []model.WeekMetrics {
	var out []model.WeekMetrics
	for _, wm := range table {
		if len(out) == 0 || out[len(out)-1].LabelYear != wm.LabelYear {
			out = append(out, wm)
			continue
		}
		cur := &out[len(out)-1]
		if better(metricOf(wm, spec.Metric), metricOf(*cur, spec.Metric), spec.Direction) {
			*cur = wm
		}
	}
	return out
}

func metricOf(wm model.WeekMetrics, m model.MetricKind) float64 {
	if m == model.MetricMean {
		return wm.Mean
	}
	return wm.Total
}

func better(candidate, current float64, d model.Direction) bool {
	if d == model.DirectionMin {
		return candidate < current
	}
	return candidate > current
}
