package temporal

import (
	"time"

	"repweeks/internal/model"
)

// Timestamps are period-ending throughout: a stamp marks the end of the
// interval it covers, so a stamp exactly on a year or week boundary closes
// the earlier year or week.

// YearStart returns the first instant of model year y.
func YearStart(y int, yt model.YearType) time.Time {
	if yt == model.YearFinancial {
		return time.Date(y-1, time.July, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// LabelYear returns the model year a stamp belongs to.
func LabelYear(t time.Time, yt model.YearType) int {
	y := t.Year()
	if yt == model.YearFinancial && t.Month() >= time.July {
		y++
	}
	if t.Equal(YearStart(y, yt)) {
		y--
	}
	return y
}

// firstMonday returns the first Monday on or after the start of model year y.
func firstMonday(y int, yt model.YearType) time.Time {
	ys := YearStart(y, yt)
	days := (int(time.Monday) - int(ys.Weekday()) + 7) % 7
	return ys.AddDate(0, 0, days)
}

// rawWeek numbers the week a stamp falls in, counted from the year's first
// Monday. Stamps at or before the first Monday get week <= 0.
func rawWeek(t, fm time.Time) int {
	const week = 7 * 24 * time.Hour
	d := t.Sub(fm)
	w := int(d / week)
	if d%week > 0 {
		w++
	}
	return w
}

// weekStart returns the instant week w of model year y opens. Samples of the
// week satisfy weekStart < t <= weekStart + 7d.
func weekStart(y, w int, yt model.YearType) time.Time {
	return firstMonday(y, yt).AddDate(0, 0, 7*(w-1))
}

// weekContained reports whether week w of model year y lies entirely inside
// the year span. Weeks straddling either year boundary fail.
func weekContained(y, w int, yt model.YearType) bool {
	if w < 1 {
		return false
	}
	end := weekStart(y, w, yt).AddDate(0, 0, 7)
	return !end.After(YearStart(y+1, yt))
}
