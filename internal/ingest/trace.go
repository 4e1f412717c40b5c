package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"repweeks/internal/model"
)

// TraceParser parses time-series CSV exports.
//
// Expected format:
//
//	datetime,value
//	2024-01-01 00:30:00,1234.5
type TraceParser struct{}

func (p *TraceParser) Parse(r io.Reader) (model.Trace, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := validateHeader(header, []string{"datetime", "value"}); err != nil {
		return nil, err
	}

	var points model.Trace
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
			return nil, fmt.Errorf("line %d: parsing datetime: %w", lineNum, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing value: %w", lineNum, err)
		}

		points = append(points, model.TracePoint{Timestamp: ts, Value: v})
	}

	return points, nil
}

// LoadTraceDir parses every .csv file in dir as one trace, keyed by file
// name without extension.
func LoadTraceDir(dir string) (map[string]model.Trace, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading trace directory: %w", err)
	}

	parser := &TraceParser{}
	traces := make(map[string]model.Trace)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", e.Name(), err)
		}
		tr, err := parser.Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		traces[strings.TrimSuffix(e.Name(), ".csv")] = tr
	}

	if len(traces) == 0 {
		return nil, fmt.Errorf("no trace files found in %s", dir)
	}
	return traces, nil
}

func validateHeader(header, expected []string) error {
	if len(header) < len(expected) {
		return fmt.Errorf("expected at least %d columns, got %d", len(expected), len(header))
	}
	for i, col := range expected {
		if strings.TrimSpace(header[i]) != col {
			return fmt.Errorf("expected column %d to be %q, got %q", i, col, header[i])
		}
	}
	return nil
}

var stampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// parseStamp parses a naive local timestamp. Stamps carry no zone; they are
// read as UTC so calendar arithmetic stays exact.
func parseStamp(s string) (time.Time, error) {
	for _, layout := range stampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
