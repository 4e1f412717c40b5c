package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"repweeks/internal/model"
)

// SnapshotParser parses snapshot grid CSV exports.
//
// Expected format:
//
//	snapshot,investment_period
//	2024-01-01 00:30:00,2024
type SnapshotParser struct{}

func (p *SnapshotParser) Parse(r io.Reader) (model.SnapshotSet, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := validateHeader(header, []string{"snapshot", "investment_period"}); err != nil {
		return nil, err
	}

	var snaps model.SnapshotSet
	lineNum := 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d", lineNum, len(record))
		}

		ts, err := parseStamp(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing snapshot: %w", lineNum, err)
		}
		period, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing investment_period: %w", lineNum, err)
		}

		snaps = append(snaps, model.Snapshot{Timestamp: ts, InvestmentPeriod: period})
	}

	return snaps, nil
}

// WriteSnapshots writes a snapshot grid in the format SnapshotParser reads.
func WriteSnapshots(w io.Writer, snaps model.SnapshotSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"snapshot", "investment_period"}); err != nil {
		return err
	}
	for _, s := range snaps {
		record := []string{
			s.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.Itoa(s.InvestmentPeriod),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
