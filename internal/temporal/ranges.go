package temporal

import "repweeks/internal/model"

// WeekIntervals converts selected weeks to their seven-day stamp intervals.
func WeekIntervals(weeks []model.SelectedWeek) []model.Interval {
	out := make([]model.Interval, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, model.Interval{
			Start: w.WeekStart,
			End:   w.WeekStart.AddDate(0, 0, 7),
		})
	}
	return out
}

// FilterSnapshots returns the snapshots falling inside any interval, in
// their original order with all fields preserved. A snapshot covered by
// overlapping intervals appears once. No intervals means an empty result.
func FilterSnapshots(snaps model.SnapshotSet, intervals []model.Interval) model.SnapshotSet {
	out := make(model.SnapshotSet, 0)
	if len(intervals) == 0 {
		return out
	}
	for _, s := range snaps {
		for _, iv := range intervals {
			if iv.Contains(s.Timestamp) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
