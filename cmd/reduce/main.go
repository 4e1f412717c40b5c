package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"repweeks/internal/config"
	"repweeks/internal/grid"
	"repweeks/internal/ingest"
	"repweeks/internal/logging"
	"repweeks/internal/model"
	"repweeks/internal/publish"
	"repweeks/internal/temporal"
	"repweeks/internal/trace"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	demandDir := flag.String("demand-dir", "", "demand trace directory (overrides config)")
	renewableDir := flag.String("renewables-dir", "", "renewable unit trace directory (overrides config)")
	generatorsFile := flag.String("generators", "", "generator fleet CSV (overrides config)")
	snapshotsFile := flag.String("snapshots", "", "snapshot CSV to filter; built from the model horizon when empty")
	outPath := flag.String("out", "", "output snapshot CSV (overrides config)")
	kafkaBrokers := flag.String("kafka-brokers", "", "comma separated Kafka brokers (overrides config)")
	kafkaTopic := flag.String("kafka-topic", "", "Kafka topic for results (overrides config)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *demandDir != "" {
		cfg.Traces.DemandDir = *demandDir
	}
	if *renewableDir != "" {
		cfg.Traces.RenewableDir = *renewableDir
	}
	if *generatorsFile != "" {
		cfg.Traces.GeneratorsFile = *generatorsFile
	}
	if *outPath != "" {
		cfg.Output.Path = *outPath
	}
	if *kafkaBrokers != "" {
		cfg.Kafka.Brokers = strings.Split(*kafkaBrokers, ",")
	}
	if *kafkaTopic != "" {
		cfg.Kafka.Topic = *kafkaTopic
	}
	if *debug {
		cfg.Debug = true
	}

	logger := logging.NewLogger(cfg.Debug)

	demand, err := loadDemand(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to load demand traces: %v", err)
	}

	renewable, err := loadRenewable(cfg, demand, logger)
	if err != nil {
		log.Fatalf("Failed to load renewable traces: %v", err)
	}

	snaps, err := loadSnapshots(cfg, *snapshotsFile)
	if err != nil {
		log.Fatalf("Failed to prepare snapshots: %v", err)
	}

	req := cfg.Request()
	res, err := temporal.Reduce(req, temporal.Inputs{
		Demand:    demand,
		Renewable: renewable,
		Snapshots: snaps,
	})
	if err != nil {
		log.Fatalf("Reduction failed: %v", err)
	}

	runID := uuid.NewString()
	logger.LogReduction(runID, len(res.Weeks), len(res.Snapshots))

	if err := writeSnapshots(cfg.Output.Path, res.Snapshots); err != nil {
		log.Fatalf("Failed to write snapshots: %v", err)
	}

	logger.UserMessage("Kept %s of %s snapshots across %d intervals",
		humanize.Comma(int64(len(res.Snapshots))), humanize.Comma(int64(len(snaps))), len(res.Intervals))
	for _, w := range res.Weeks {
		names := make([]string, len(w.Criteria))
		for i, c := range w.Criteria {
			names[i] = string(c)
		}
		logger.UserMessage("  %s %d week %2d  starts %s  (%s)",
			cfg.Temporal.YearType, w.LabelYear, w.WeekOfYear,
			w.WeekStart.Format("2006-01-02"), strings.Join(names, ", "))
	}
	logger.UserMessage("Wrote %s", cfg.Output.Path)

	printWeightings(cfg, logger)

	if len(cfg.Kafka.Brokers) > 0 {
		publishResult(cfg, logger, runID, req, res)
	}
}

// loadDemand reads every demand CSV and sums the regions into one trace.
func loadDemand(cfg *config.Config, logger *logging.Logger) (model.Trace, error) {
	if cfg.Traces.DemandDir == "" {
		return nil, fmt.Errorf("no demand directory configured")
	}
	byRegion, err := ingest.LoadTraceDir(cfg.Traces.DemandDir)
	if err != nil {
		return nil, err
	}

	regions := make([]string, 0, len(byRegion))
	for name := range byRegion {
		regions = append(regions, name)
	}
	sort.Strings(regions)

	points := 0
	traces := make([]model.Trace, 0, len(regions))
	for _, name := range regions {
		traces = append(traces, byRegion[name])
		points += len(byRegion[name])
	}
	logger.LogTracesLoaded("demand", len(traces), points)
	return trace.SumTraces(traces), nil
}

// loadRenewable builds the aggregate renewable generation trace, or nil
// when no renewable directory is configured.
func loadRenewable(cfg *config.Config, demand model.Trace, logger *logging.Logger) (model.Trace, error) {
	if cfg.Traces.RenewableDir == "" {
		return nil, nil
	}
	units, err := ingest.LoadTraceDir(cfg.Traces.RenewableDir)
	if err != nil {
		return nil, err
	}
	if cfg.Traces.GeneratorsFile == "" {
		return nil, fmt.Errorf("renewable traces need traces.generators_file for capacities")
	}

	f, err := os.Open(cfg.Traces.GeneratorsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fleet, err := (&ingest.FleetParser{}).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cfg.Traces.GeneratorsFile, err)
	}

	points := 0
	for _, u := range units {
		points += len(u)
	}
	logger.LogTracesLoaded("renewable", len(units), points)
	return trace.FleetGeneration(fleet, units, demand)
}

// loadSnapshots reads the snapshot CSV when given, or builds the grid
// over the configured horizon.
func loadSnapshots(cfg *config.Config, path string) (model.SnapshotSet, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return (&ingest.SnapshotParser{}).Parse(f)
	}

	yt := model.YearType(cfg.Temporal.YearType)
	snaps, err := grid.BuildSnapshots(cfg.Temporal.StartYear, cfg.Temporal.EndYear, yt, cfg.Temporal.ResolutionMin)
	if err != nil {
		return nil, err
	}
	if len(cfg.Investment.Periods) > 0 {
		return grid.TagInvestmentPeriods(snaps, cfg.Investment.Periods, yt)
	}
	return snaps, nil
}

func writeSnapshots(path string, snaps model.SnapshotSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ingest.WriteSnapshots(f, snaps); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// printWeightings reports the capital weighting of each investment period.
func printWeightings(cfg *config.Config, logger *logging.Logger) {
	if len(cfg.Investment.Periods) == 0 {
		return
	}
	weightings, err := grid.PeriodWeightings(cfg.Investment.Periods, cfg.Temporal.EndYear, cfg.Investment.DiscountRate)
	if err != nil {
		log.Printf("Period weightings: %v", err)
		return
	}
	logger.UserMessage("Investment period weightings (discount rate %.2f%%):", cfg.Investment.DiscountRate*100)
	for _, pw := range weightings {
		logger.UserMessage("  %d: %d years, objective %.4f", pw.Period, pw.Years, pw.Objective)
	}
}

func publishResult(cfg *config.Config, logger *logging.Logger, runID string, req temporal.Request, res *temporal.Result) {
	pub := publish.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := publish.NewResultMessage(runID, req, res, time.Now().UTC())
	if err := pub.PublishResult(ctx, msg); err != nil {
		log.Printf("Kafka publish: %v", err)
		return
	}
	logger.UserMessage("Published result %s to %s", runID, cfg.Kafka.Topic)
}
