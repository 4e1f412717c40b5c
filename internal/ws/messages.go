package ws

import (
	"encoding/json"
	"time"

	"repweeks/internal/model"
	"repweeks/internal/temporal"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

type ReduceRunPayload struct {
	Criteria   []string `json:"criteria"`
	FixedWeeks []int    `json:"fixed_weeks,omitempty"`
	YearType   string   `json:"year_type"`
	StartYear  int      `json:"start_year"`
	EndYear    int      `json:"end_year"`
}

// Request converts the payload into an engine request.
func (p ReduceRunPayload) Request() temporal.Request {
	criteria := make([]model.Criterion, len(p.Criteria))
	for i, c := range p.Criteria {
		criteria[i] = model.Criterion(c)
	}
	return temporal.Request{
		Criteria:   criteria,
		FixedWeeks: p.FixedWeeks,
		YearType:   model.YearType(p.YearType),
		StartYear:  p.StartYear,
		EndYear:    p.EndYear,
	}
}

// Server -> Client messages

type TraceInfo struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type DataLoadedPayload struct {
	Traces       []TraceInfo `json:"traces"`
	HorizonStart string      `json:"horizon_start"`
	HorizonEnd   string      `json:"horizon_end"`
}

type CriterionInfo struct {
	Name      string `json:"name"`
	Series    string `json:"series"`
	Metric    string `json:"metric"`
	Direction string `json:"direction"`
}

type CriteriaInfoPayload struct {
	Criteria []CriterionInfo `json:"criteria"`
}

type SelectedWeekInfo struct {
	Year      int      `json:"year"`
	Week      int      `json:"week"`
	WeekStart string   `json:"week_start"`
	Criteria  []string `json:"criteria,omitempty"`
}

type IntervalInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ReduceResultPayload struct {
	RunID         string             `json:"run_id"`
	YearType      string             `json:"year_type"`
	StartYear     int                `json:"start_year"`
	EndYear       int                `json:"end_year"`
	Weeks         []SelectedWeekInfo `json:"weeks"`
	Intervals     []IntervalInfo     `json:"intervals"`
	SnapshotCount int                `json:"snapshot_count"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Message type constants
const (
	// Client -> Server
	TypeReduceRun    = "reduce:run"
	TypeCriteriaList = "criteria:list"

	// Server -> Client
	TypeDataLoaded   = "data:loaded"
	TypeCriteriaInfo = "criteria:info"
	TypeReduceResult = "reduce:result"
	TypeError        = "error"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// CriteriaFromRegistry lists every supported criterion in name order.
func CriteriaFromRegistry() CriteriaInfoPayload {
	var p CriteriaInfoPayload
	for _, name := range model.CriterionNames() {
		spec := model.Criteria[model.Criterion(name)]
		p.Criteria = append(p.Criteria, CriterionInfo{
			Name:      name,
			Series:    string(spec.Series),
			Metric:    string(spec.Metric),
			Direction: string(spec.Direction),
		})
	}
	return p
}

// ResultFromReduction formats a finished run for the wire.
func ResultFromReduction(runID string, req temporal.Request, res *temporal.Result) ReduceResultPayload {
	p := ReduceResultPayload{
		RunID:         runID,
		YearType:      string(req.YearType),
		StartYear:     req.StartYear,
		EndYear:       req.EndYear,
		Weeks:         make([]SelectedWeekInfo, 0, len(res.Weeks)),
		Intervals:     make([]IntervalInfo, 0, len(res.Intervals)),
		SnapshotCount: len(res.Snapshots),
	}
	for _, w := range res.Weeks {
		criteria := make([]string, len(w.Criteria))
		for i, c := range w.Criteria {
			criteria[i] = string(c)
		}
		p.Weeks = append(p.Weeks, SelectedWeekInfo{
			Year:      w.LabelYear,
			Week:      w.WeekOfYear,
			WeekStart: w.WeekStart.Format(time.RFC3339),
			Criteria:  criteria,
		})
	}
	for _, iv := range res.Intervals {
		p.Intervals = append(p.Intervals, IntervalInfo{
			Start: iv.Start.Format(time.RFC3339),
			End:   iv.End.Format(time.RFC3339),
		})
	}
	return p
}
