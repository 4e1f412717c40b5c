package temporal

import (
	"sort"

	"repweeks/internal/model"
)

// WeekMetricsTable aggregates assigned samples into per-week statistics.
// The table is sorted by year then week number; downstream tie-breaks rely
// on that order. Empty input yields an empty table.
func WeekMetricsTable(points []AssignedPoint, yt model.YearType) []model.WeekMetrics {
	agg := make(map[model.WeekKey]*model.WeekMetrics)
	for _, ap := range points {
		m, ok := agg[ap.Week]
		if !ok {
			m = &model.WeekMetrics{
				WeekKey:   ap.Week,
				WeekStart: weekStart(ap.Week.LabelYear, ap.Week.WeekOfYear, yt),
				Max:       ap.Point.Value,
				Min:       ap.Point.Value,
			}
			agg[ap.Week] = m
		}
		m.Total += ap.Point.Value
		if ap.Point.Value > m.Max {
			m.Max = ap.Point.Value
		}
		if ap.Point.Value < m.Min {
			m.Min = ap.Point.Value
		}
		m.Count++
	}

	out := make([]model.WeekMetrics, 0, len(agg))
	for _, m := range agg {
		m.Mean = m.Total / float64(m.Count)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LabelYear != out[j].LabelYear {
			return out[i].LabelYear < out[j].LabelYear
		}
		return out[i].WeekOfYear < out[j].WeekOfYear
	})
	return out
}
