package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repweeks/internal/logging"
	"repweeks/internal/model"
	"repweeks/internal/store"
	"repweeks/internal/temporal"
)

// testEngine runs reductions against fixed inputs with a constant run ID.
type testEngine struct {
	inputs temporal.Inputs
}

func (e *testEngine) Run(req temporal.Request) (string, *temporal.Result, error) {
	res, err := temporal.Reduce(req, e.inputs)
	if err != nil {
		return "", nil, err
	}
	return "run-1", res, nil
}

func (e *testEngine) WeeklyMetrics(series model.SeriesKind, yearType model.YearType, startYear, endYear int) ([]model.WeekMetrics, error) {
	if series == model.SeriesResidual {
		return nil, &temporal.ConfigurationError{
			Field:   "series",
			Message: "renewable generation inputs required for residual demand criteria",
		}
	}
	assigned := temporal.AssignWeeks(e.inputs.Demand, yearType, startYear, endYear)
	return temporal.WeekMetricsTable(assigned, yearType), nil
}

type recordingNotifier struct {
	runIDs []string
}

func (n *recordingNotifier) NotifyResult(runID string, _ temporal.Request, _ *temporal.Result) {
	n.runIDs = append(n.runIDs, runID)
}

// testServer builds a server over two January 2024 weeks, with the
// demand peak in the second week.
func testServer() (*Server, *recordingNotifier) {
	stamps := []time.Time{
		time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 13, 12, 0, 0, 0, time.UTC),
	}
	values := []float64{100, 120, 300, 250}

	demand := make(model.Trace, len(stamps))
	snaps := make(model.SnapshotSet, len(stamps))
	for i, ts := range stamps {
		demand[i] = model.TracePoint{Timestamp: ts, Value: values[i]}
		snaps[i] = model.Snapshot{Timestamp: ts, InvestmentPeriod: 2024}
	}

	engine := &testEngine{inputs: temporal.Inputs{Demand: demand, Snapshots: snaps}}
	traces := store.New()
	traces.Add("demand/nsw", demand)

	defaults := temporal.Request{
		YearType:  model.YearCalendar,
		StartYear: 2024,
		EndYear:   2024,
	}
	notifier := &recordingNotifier{}
	srv := NewServer(engine, traces, defaults, notifier, nil, logging.NewLogger(false))
	return srv, notifier
}

func doRequest(t *testing.T, srv *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	srv.NewRouter().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/health", nil)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Traces int    `json:"traces"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Traces)
}

func TestListCriteria(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/criteria", nil)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		Criteria []struct {
			Name      string `json:"name"`
			Series    string `json:"series"`
			Metric    string `json:"metric"`
			Direction string `json:"direction"`
		} `json:"criteria"`
	}
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Criteria, 6)
	assert.Equal(t, "minimum-demand-week", resp.Criteria[0].Name)
	assert.Equal(t, "demand", resp.Criteria[0].Series)
	assert.Equal(t, "min", resp.Criteria[0].Direction)
}

func TestRunReduction(t *testing.T) {
	srv, notifier := testServer()

	body := `{"criteria":["peak-demand-week"]}`
	rec := doRequest(t, srv, "POST", "/api/reduce", strings.NewReader(body))
	require.Equal(t, 200, rec.Code)

	var resp struct {
		RunID    string `json:"run_id"`
		YearType string `json:"year_type"`
		Weeks    []struct {
			Year      int      `json:"year"`
			Week      int      `json:"week"`
			WeekStart string   `json:"week_start"`
			Criteria  []string `json:"criteria"`
		} `json:"weeks"`
		Intervals []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"intervals"`
		SnapshotCount int `json:"snapshot_count"`
	}
	decodeJSON(t, rec, &resp)

	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "calendar", resp.YearType)

	require.Len(t, resp.Weeks, 1)
	assert.Equal(t, 2024, resp.Weeks[0].Year)
	assert.Equal(t, 2, resp.Weeks[0].Week)
	assert.Equal(t, "2024-01-08T00:00:00Z", resp.Weeks[0].WeekStart)
	assert.Equal(t, []string{"peak-demand-week"}, resp.Weeks[0].Criteria)

	require.Len(t, resp.Intervals, 1)
	assert.Equal(t, "2024-01-15T00:00:00Z", resp.Intervals[0].End)

	assert.Equal(t, 2, resp.SnapshotCount)
	assert.Equal(t, []string{"run-1"}, notifier.runIDs)
}

func TestRunReduction_YearOverride(t *testing.T) {
	srv, _ := testServer()

	// No data in 2025, so the result is empty but well formed
	body := `{"criteria":["peak-demand-week"],"start_year":2025,"end_year":2025}`
	rec := doRequest(t, srv, "POST", "/api/reduce", strings.NewReader(body))
	require.Equal(t, 200, rec.Code)

	var resp struct {
		StartYear     int   `json:"start_year"`
		EndYear       int   `json:"end_year"`
		Weeks         []any `json:"weeks"`
		SnapshotCount int   `json:"snapshot_count"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 2025, resp.StartYear)
	assert.Equal(t, 2025, resp.EndYear)
	assert.Empty(t, resp.Weeks)
	assert.Equal(t, 0, resp.SnapshotCount)
}

func TestRunReduction_UnknownCriterion(t *testing.T) {
	srv, notifier := testServer()

	body := `{"criteria":["wettest-week"]}`
	rec := doRequest(t, srv, "POST", "/api/reduce", strings.NewReader(body))
	require.Equal(t, 400, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	assert.Contains(t, resp.Error, "unsupported named weeks")
	assert.Empty(t, notifier.runIDs)
}

func TestRunReduction_InvalidJSON(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "POST", "/api/reduce", strings.NewReader("{not json"))
	require.Equal(t, 400, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "invalid json", resp.Error)
}

func TestWeeklyMetrics(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/weeks", nil)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		Series string `json:"series"`
		Weeks  []struct {
			Year  int     `json:"year"`
			Week  int     `json:"week"`
			Total float64 `json:"total"`
			Mean  float64 `json:"mean"`
			Count int     `json:"count"`
		} `json:"weeks"`
	}
	decodeJSON(t, rec, &resp)

	assert.Equal(t, "demand", resp.Series)
	require.Len(t, resp.Weeks, 2)
	assert.Equal(t, 1, resp.Weeks[0].Week)
	assert.InDelta(t, 220, resp.Weeks[0].Total, 0.001)
	assert.InDelta(t, 110, resp.Weeks[0].Mean, 0.001)
	assert.Equal(t, 2, resp.Weeks[1].Week)
	assert.InDelta(t, 550, resp.Weeks[1].Total, 0.001)
}

func TestWeeklyMetrics_ResidualUnavailable(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/weeks?series=residual", nil)
	require.Equal(t, 400, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	assert.Contains(t, resp.Error, "renewable generation inputs required")
}

func TestWeeklyMetrics_UnknownSeries(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/weeks?series=wind", nil)
	assert.Equal(t, 400, rec.Code)
}

func TestWeeklyMetrics_InvalidYear(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/weeks?start_year=abc", nil)
	assert.Equal(t, 400, rec.Code)
}

func TestListTraces(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/traces", nil)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		Traces []struct {
			Name   string `json:"name"`
			Points int    `json:"points"`
			Start  string `json:"start"`
			End    string `json:"end"`
		} `json:"traces"`
	}
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Traces, 1)
	assert.Equal(t, "demand/nsw", resp.Traces[0].Name)
	assert.Equal(t, 4, resp.Traces[0].Points)
	assert.Equal(t, "2024-01-03T12:00:00Z", resp.Traces[0].Start)
	assert.Equal(t, "2024-01-13T12:00:00Z", resp.Traces[0].End)
}

func TestGetTrace(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/traces/demand/nsw", nil)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		Name   string `json:"name"`
		Points []struct {
			Timestamp string  `json:"timestamp"`
			Value     float64 `json:"value"`
		} `json:"points"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "demand/nsw", resp.Name)
	require.Len(t, resp.Points, 4)
	assert.Equal(t, "2024-01-03T12:00:00Z", resp.Points[0].Timestamp)
	assert.InDelta(t, 100, resp.Points[0].Value, 0.001)
}

func TestGetTrace_Window(t *testing.T) {
	srv, _ := testServer()

	// from is exclusive: the point at 2024-01-03T12:00:00Z stays out
	target := "/api/traces/demand/nsw?from=2024-01-03T12:00:00Z&to=2024-01-10T12:00:00Z"
	rec := doRequest(t, srv, "GET", target, nil)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		Points []struct {
			Timestamp string `json:"timestamp"`
		} `json:"points"`
	}
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Points, 2)
	assert.Equal(t, "2024-01-06T12:00:00Z", resp.Points[0].Timestamp)
	assert.Equal(t, "2024-01-10T12:00:00Z", resp.Points[1].Timestamp)
}

func TestGetTrace_Unknown(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/traces/demand/qld", nil)
	assert.Equal(t, 404, rec.Code)
}

func TestGetTrace_BadWindow(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/traces/demand/nsw?from=yesterday", nil)
	assert.Equal(t, 400, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := testServer()

	rec := doRequest(t, srv, "GET", "/api/reduce", nil)
	assert.Equal(t, 405, rec.Code)
}
