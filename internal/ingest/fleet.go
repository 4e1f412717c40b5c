package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"repweeks/internal/model"
)

// FleetParser parses generator fleet CSV exports.
//
// Expected format:
//
//	generator_id,fuel_type,capacity_mw
//	nsw-solar-01,solar,150.0
type FleetParser struct{}

func (p *FleetParser) Parse(r io.Reader) ([]model.Generator, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := validateHeader(header, []string{"generator_id", "fuel_type", "capacity_mw"}); err != nil {
		return nil, err
	}

	var fleet []model.Generator
	seen := make(map[string]bool)
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
		if len(record) < 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d", lineNum, len(record))
		}

		id := strings.TrimSpace(record[0])
		if id == "" {
			return nil, fmt.Errorf("line %d: empty generator_id", lineNum)
		}
		if seen[id] {
			return nil, fmt.Errorf("line %d: duplicate generator %q", lineNum, id)
		}
		seen[id] = true

		fuel := model.FuelType(strings.ToLower(strings.TrimSpace(record[1])))
		if !model.FuelTypes[fuel] {
			return nil, fmt.Errorf("line %d: unknown fuel type %q", lineNum, record[1])
		}

		capMW, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing capacity_mw: %w", lineNum, err)
		}
		if capMW < 0 {
			return nil, fmt.Errorf("line %d: negative capacity %v for %q", lineNum, capMW, id)
		}

		fleet = append(fleet, model.Generator{ID: id, Fuel: fuel, CapacityMW: capMW})
	}

	return fleet, nil
}
