package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"repweeks/internal/logging"
	"repweeks/internal/temporal"
)

// WeekRecord is one selected week inside a published result.
type WeekRecord struct {
	Year      int       `json:"year"`
	Week      int       `json:"week"`
	WeekStart time.Time `json:"week_start"`
	Criteria  []string  `json:"criteria,omitempty"`
}

// ResultMessage is the record published for every finished reduction.
type ResultMessage struct {
	RunID         string       `json:"run_id"`
	YearType      string       `json:"year_type"`
	StartYear     int          `json:"start_year"`
	EndYear       int          `json:"end_year"`
	Criteria      []string     `json:"criteria"`
	FixedWeeks    []int        `json:"fixed_weeks,omitempty"`
	Weeks         []WeekRecord `json:"weeks"`
	SnapshotCount int          `json:"snapshot_count"`
	CompletedAt   time.Time    `json:"completed_at"`
}

// NewResultMessage assembles the record for one finished run.
func NewResultMessage(runID string, req temporal.Request, res *temporal.Result, completedAt time.Time) ResultMessage {
	criteria := make([]string, len(req.Criteria))
	for i, c := range req.Criteria {
		criteria[i] = string(c)
	}
	weeks := make([]WeekRecord, 0, len(res.Weeks))
	for _, w := range res.Weeks {
		rec := WeekRecord{
			Year:      w.LabelYear,
			Week:      w.WeekOfYear,
			WeekStart: w.WeekStart,
			Criteria:  make([]string, len(w.Criteria)),
		}
		for i, c := range w.Criteria {
			rec.Criteria[i] = string(c)
		}
		weeks = append(weeks, rec)
	}
	return ResultMessage{
		RunID:         runID,
		YearType:      string(req.YearType),
		StartYear:     req.StartYear,
		EndYear:       req.EndYear,
		Criteria:      criteria,
		FixedWeeks:    req.FixedWeeks,
		Weeks:         weeks,
		SnapshotCount: len(res.Snapshots),
		CompletedAt:   completedAt,
	}
}

// Publisher writes reduction results to a Kafka topic, keyed by run ID.
type Publisher struct {
	writer *kafka.Writer
	log    *logging.Logger
}

func NewPublisher(brokers []string, topic string, log *logging.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		log: log,
	}
}

func (p *Publisher) PublishResult(ctx context.Context, msg ResultMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal result %s: %w", msg.RunID, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RunID),
		Value: value,
		Time:  msg.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("publish result %s: %w", msg.RunID, err)
	}
	p.log.Debug("published result", "run_id", msg.RunID, "weeks", len(msg.Weeks))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
