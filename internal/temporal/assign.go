package temporal

import (
	"time"

	"repweeks/internal/model"
)

// AssignedPoint is a trace sample labelled with the week that owns it.
type AssignedPoint struct {
	Point model.TracePoint
	Week  model.WeekKey
}

// AssignWeeks labels every sample with its model year and week number and
// keeps only samples from weeks lying entirely inside a requested year.
// Two passes: raw year/week labels per sample, then whole buckets dropped
// when their week straddles a year boundary. Containment is decided from
// the week key alone, never from which samples happen to be present.
func AssignWeeks(tr model.Trace, yt model.YearType, startYear, endYear int) []AssignedPoint {
	mondays := make(map[int]time.Time)

	raw := make([]AssignedPoint, 0, len(tr))
	for _, p := range tr {
		y := LabelYear(p.Timestamp, yt)
		if y < startYear || y > endYear {
			continue
		}
		fm, ok := mondays[y]
		if !ok {
			fm = firstMonday(y, yt)
			mondays[y] = fm
		}
		raw = append(raw, AssignedPoint{
			Point: p,
			Week:  model.WeekKey{LabelYear: y, WeekOfYear: rawWeek(p.Timestamp, fm)},
		})
	}

	contained := make(map[model.WeekKey]bool)
	kept := raw[:0]
	for _, ap := range raw {
		ok, seen := contained[ap.Week]
		if !seen {
			ok = weekContained(ap.Week.LabelYear, ap.Week.WeekOfYear, yt)
			contained[ap.Week] = ok
		}
		if ok {
			kept = append(kept, ap)
		}
	}
	return kept
}
