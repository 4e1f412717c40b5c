package temporal

import (
	"fmt"

	"repweeks/internal/model"
)

// FixedWeekIntervals builds intervals for explicitly numbered weeks in every
// model year of the range. Week 1 is the first whole Monday-anchored week of
// the year; a requested week running past the year end is an error.
func FixedWeekIntervals(weeks []int, yt model.YearType, startYear, endYear int) ([]model.Interval, error) {
	var out []model.Interval
	for y := startYear; y <= endYear; y++ {
		for _, w := range weeks {
			if w < 1 {
				return nil, &ConfigurationError{
					Field:   "representative_weeks",
					Message: fmt.Sprintf("week number %d is not positive", w),
				}
			}
			if !weekContained(y, w, yt) {
				return nil, &ConfigurationError{
					Field: "representative_weeks",
					Message: fmt.Sprintf("representative week %d ends after the end of model year %d; use a smaller week number",
						w, y),
				}
			}
			start := weekStart(y, w, yt)
			out = append(out, model.Interval{Start: start, End: start.AddDate(0, 0, 7)})
		}
	}
	return out, nil
}
