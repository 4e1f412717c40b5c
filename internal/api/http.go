package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"repweeks/internal/logging"
	"repweeks/internal/model"
	"repweeks/internal/store"
	"repweeks/internal/temporal"
)

// Engine runs reductions and reports weekly statistics for the loaded series.
type Engine interface {
	Run(req temporal.Request) (string, *temporal.Result, error)
	WeeklyMetrics(series model.SeriesKind, yearType model.YearType, startYear, endYear int) ([]model.WeekMetrics, error)
}

// ResultNotifier fans a finished run out to listeners on other transports.
type ResultNotifier interface {
	NotifyResult(runID string, req temporal.Request, res *temporal.Result)
}

// Server answers REST requests for reductions, weekly metrics and raw traces.
type Server struct {
	engine   Engine
	traces   *store.Store
	defaults temporal.Request
	notifier ResultNotifier
	metrics  *Metrics
	log      *logging.Logger
}

func NewServer(engine Engine, traces *store.Store, defaults temporal.Request, notifier ResultNotifier, metrics *Metrics, log *logging.Logger) *Server {
	return &Server{
		engine:   engine,
		traces:   traces,
		defaults: defaults,
		notifier: notifier,
		metrics:  metrics,
		log:      log,
	}
}

type weekJSON struct {
	Year      int      `json:"year"`
	Week      int      `json:"week"`
	WeekStart string   `json:"week_start"`
	Criteria  []string `json:"criteria,omitempty"`
}

type intervalJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type weekMetricsJSON struct {
	Year      int     `json:"year"`
	Week      int     `json:"week"`
	WeekStart string  `json:"week_start"`
	Total     float64 `json:"total"`
	Mean      float64 `json:"mean"`
	Max       float64 `json:"max"`
	Min       float64 `json:"min"`
	Count     int     `json:"count"`
}

type traceJSON struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type pointJSON struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"traces": len(s.traces.Names()),
	})
}

func (s *Server) listCriteria(w http.ResponseWriter, _ *http.Request) {
	type criterionJSON struct {
		Name      string `json:"name"`
		Series    string `json:"series"`
		Metric    string `json:"metric"`
		Direction string `json:"direction"`
	}
	criteria := make([]criterionJSON, 0)
	for _, name := range model.CriterionNames() {
		spec := model.Criteria[model.Criterion(name)]
		criteria = append(criteria, criterionJSON{
			Name:      name,
			Series:    string(spec.Series),
			Metric:    string(spec.Metric),
			Direction: string(spec.Direction),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"criteria": criteria})
}

func (s *Server) runReduction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Criteria   []string `json:"criteria"`
		FixedWeeks []int    `json:"fixed_weeks"`
		YearType   string   `json:"year_type"`
		StartYear  int      `json:"start_year"`
		EndYear    int      `json:"end_year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	defer r.Body.Close()

	treq := s.defaults
	treq.Criteria = make([]model.Criterion, len(req.Criteria))
	for i, c := range req.Criteria {
		treq.Criteria[i] = model.Criterion(c)
	}
	treq.FixedWeeks = req.FixedWeeks
	if req.YearType != "" {
		treq.YearType = model.YearType(req.YearType)
	}
	if req.StartYear != 0 {
		treq.StartYear = req.StartYear
	}
	if req.EndYear != 0 {
		treq.EndYear = req.EndYear
	}

	runID, res, err := s.engine.Run(treq)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if s.notifier != nil {
		s.notifier.NotifyResult(runID, treq, res)
	}
	s.metrics.ReductionRan(len(res.Weeks), len(res.Snapshots))
	s.log.LogReduction(runID, len(res.Weeks), len(res.Snapshots))

	weeks := make([]weekJSON, 0, len(res.Weeks))
	for _, wk := range res.Weeks {
		criteria := make([]string, len(wk.Criteria))
		for i, c := range wk.Criteria {
			criteria[i] = string(c)
		}
		weeks = append(weeks, weekJSON{
			Year:      wk.LabelYear,
			Week:      wk.WeekOfYear,
			WeekStart: wk.WeekStart.Format(time.RFC3339),
			Criteria:  criteria,
		})
	}
	intervals := make([]intervalJSON, 0, len(res.Intervals))
	for _, iv := range res.Intervals {
		intervals = append(intervals, intervalJSON{
			Start: iv.Start.Format(time.RFC3339),
			End:   iv.End.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":         runID,
		"year_type":      string(treq.YearType),
		"start_year":     treq.StartYear,
		"end_year":       treq.EndYear,
		"weeks":          weeks,
		"intervals":      intervals,
		"snapshot_count": len(res.Snapshots),
	})
}

func (s *Server) weeklyMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	series := model.SeriesDemand
	if v := q.Get("series"); v != "" {
		series = model.SeriesKind(v)
		if series != model.SeriesDemand && series != model.SeriesResidual {
			writeError(w, http.StatusBadRequest, "unknown series "+v)
			return
		}
	}

	yearType := s.defaults.YearType
	if v := q.Get("year_type"); v != "" {
		yearType = model.YearType(v)
	}
	startYear, endYear := s.defaults.StartYear, s.defaults.EndYear
	var err error
	if v := q.Get("start_year"); v != "" {
		if startYear, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_year")
			return
		}
	}
	if v := q.Get("end_year"); v != "" {
		if endYear, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_year")
			return
		}
	}

	table, err := s.engine.WeeklyMetrics(series, yearType, startYear, endYear)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	weeks := make([]weekMetricsJSON, 0, len(table))
	for _, wm := range table {
		weeks = append(weeks, weekMetricsJSON{
			Year:      wm.LabelYear,
			Week:      wm.WeekOfYear,
			WeekStart: wm.WeekStart.Format(time.RFC3339),
			Total:     wm.Total,
			Mean:      wm.Mean,
			Max:       wm.Max,
			Min:       wm.Min,
			Count:     wm.Count,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"series":    string(series),
		"year_type": string(yearType),
		"weeks":     weeks,
	})
}

func (s *Server) listTraces(w http.ResponseWriter, _ *http.Request) {
	traces := make([]traceJSON, 0)
	for _, name := range s.traces.Names() {
		info := traceJSON{Name: name, Points: s.traces.PointCount(name)}
		if rng, ok := s.traces.Range(name); ok {
			info.Start = rng.Start.Format(time.RFC3339)
			info.End = rng.End.Format(time.RFC3339)
		}
		traces = append(traces, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"traces": traces})
}

// getTrace returns points for one series. The from bound is exclusive
// and to is inclusive, matching the period-ending stamp convention.
func (s *Server) getTrace(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	rng, ok := s.traces.Range(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown trace "+name)
		return
	}

	q := r.URL.Query()
	var points model.Trace
	if q.Get("from") == "" && q.Get("to") == "" {
		points = s.traces.Trace(name)
	} else {
		// Zero from keeps the first point in: the window excludes its
		// start bound.
		var from time.Time
		to := rng.End
		var err error
		if v := q.Get("from"); v != "" {
			if from, err = time.Parse(time.RFC3339, v); err != nil {
				writeError(w, http.StatusBadRequest, "invalid from; use RFC3339")
				return
			}
		}
		if v := q.Get("to"); v != "" {
			if to, err = time.Parse(time.RFC3339, v); err != nil {
				writeError(w, http.StatusBadRequest, "invalid to; use RFC3339")
				return
			}
		}
		points = s.traces.PointsInRange(name, from, to)
	}

	out := make([]pointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, pointJSON{
			Timestamp: p.Timestamp.Format(time.RFC3339),
			Value:     p.Value,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "points": out})
}

func writeEngineError(w http.ResponseWriter, err error) {
	var confErr *temporal.ConfigurationError
	var dataErr *temporal.DataError
	switch {
	case errors.As(err, &confErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &dataErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
