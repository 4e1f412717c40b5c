package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"

	"repweeks/internal/config"
	"repweeks/internal/grid"
	"repweeks/internal/ingest"
	"repweeks/internal/logging"
	"repweeks/internal/model"
	"repweeks/internal/temporal"
	"repweeks/internal/trace"
)

// session holds the loaded traces and the request being explored.
type session struct {
	demand    model.Trace
	renewable model.Trace
	residual  model.Trace

	resolutionMin int
	yearType      model.YearType
	startYear     int
	endYear       int
	periods       []int

	criteria []model.Criterion
	fixed    []int

	lastResult *temporal.Result
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewLogger(cfg.Debug)

	s, err := newSession(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to load traces: %v", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "repweeks> ",
		HistoryFile: historyFilePath(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize readline: %v", err)
	}
	defer rl.Close()

	fmt.Printf("Loaded %s demand points over %d-%d (%s years). Type 'help' for commands.\n",
		humanize.Comma(int64(len(s.demand))), s.startYear, s.endYear, s.yearType)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			break
		}
		if err != nil {
			break // EOF
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !s.handleCommand(line) {
			break
		}
	}
}

func newSession(cfg *config.Config, logger *logging.Logger) (*session, error) {
	if cfg.Traces.DemandDir == "" {
		return nil, errors.New("no demand directory configured")
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
	traces := make([]model.Trace, 0, len(regions))
	for _, name := range regions {
		traces = append(traces, byRegion[name])
	}
	demand := trace.SumTraces(traces)
	logger.LogTracesLoaded("demand", len(byRegion), len(demand))

	s := &session{
		demand:        demand,
		resolutionMin: cfg.Temporal.ResolutionMin,
		yearType:      model.YearType(cfg.Temporal.YearType),
		startYear:     cfg.Temporal.StartYear,
		endYear:       cfg.Temporal.EndYear,
		periods:       cfg.Investment.Periods,
		criteria:      cfg.NamedCriteria(),
		fixed:         cfg.Temporal.Aggregation.RepresentativeWeeks,
	}

	if cfg.Traces.RenewableDir != "" {
		units, err := ingest.LoadTraceDir(cfg.Traces.RenewableDir)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(cfg.Traces.GeneratorsFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		fleet, err := (&ingest.FleetParser{}).Parse(f)
		if err != nil {
			return nil, err
		}
		renewable, err := trace.FleetGeneration(fleet, units, demand)
		if err != nil {
			return nil, err
		}
		s.renewable = renewable
		s.residual = trace.Residual(demand, renewable)
		logger.LogTracesLoaded("renewable", len(units), len(renewable))
	}

	return s, nil
}

// handleCommand dispatches one line. Returns false to exit the loop.
func (s *session) handleCommand(line string) bool {
	parts := strings.Fields(line)

	switch parts[0] {
	case "help":
		printHelp()
	case "show":
		s.printSettings()
	case "criteria":
		s.printCriteria()
	case "years":
		s.printYears()
	case "metrics":
		s.printMetrics(parts[1:])
	case "select":
		s.setCriteria(parts[1:])
	case "fixed":
		s.setFixed(parts[1:])
	case "set":
		s.setOption(parts[1:])
	case "run":
		s.run()
	case "ranges":
		s.printRanges()
	case "exit", "quit":
		return false
	default:
		log.Printf("Unknown command: %s (try 'help')", parts[0])
	}
	return true
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  criteria                      - List supported selection criteria")
	fmt.Println("  years                         - Show point counts per model year")
	fmt.Println("  metrics [demand|residual] [y] - Weekly metrics table, optionally one year")
	fmt.Println("  select <criterion>... | none  - Choose the named week criteria")
	fmt.Println("  fixed <week>... | none        - Choose fixed representative weeks")
	fmt.Println("  set year-type <calendar|fy>   - Switch the year convention")
	fmt.Println("  set start <year>              - Set the first model year")
	fmt.Println("  set end <year>                - Set the last model year")
	fmt.Println("  set resolution <minutes>      - Set the snapshot resolution")
	fmt.Println("  run                           - Run the reduction with current settings")
	fmt.Println("  ranges                        - Show retained intervals of the last run")
	fmt.Println("  show                          - Show current settings")
	fmt.Println("  exit                          - Quit")
}

func (s *session) printSettings() {
	fmt.Printf("year type:  %s\n", s.yearType)
	fmt.Printf("years:      %d-%d\n", s.startYear, s.endYear)
	fmt.Printf("resolution: %d min\n", s.resolutionMin)
	names := make([]string, len(s.criteria))
	for i, c := range s.criteria {
		names[i] = string(c)
	}
	fmt.Printf("criteria:   %s\n", strings.Join(names, ", "))
	fmt.Printf("fixed:      %v\n", s.fixed)
	fmt.Printf("demand:     %s points\n", humanize.Comma(int64(len(s.demand))))
	if s.residual != nil {
		fmt.Printf("residual:   %s points\n", humanize.Comma(int64(len(s.residual))))
	} else {
		fmt.Println("residual:   not available (no renewable inputs)")
	}
}

func (s *session) printCriteria() {
	for _, name := range model.CriterionNames() {
		spec := model.Criteria[model.Criterion(name)]
		fmt.Printf("  %-32s %s %s, %s\n", name, spec.Series, spec.Metric, spec.Direction)
	}
}

func (s *session) printYears() {
	assigned := temporal.AssignWeeks(s.demand, s.yearType, s.startYear, s.endYear)
	points := make(map[int]int)
	weeks := make(map[int]map[int]bool)
	for _, ap := range assigned {
		y := ap.Week.LabelYear
		points[y]++
		if weeks[y] == nil {
			weeks[y] = make(map[int]bool)
		}
		weeks[y][ap.Week.WeekOfYear] = true
	}

	years := make([]int, 0, len(points))
	for y := range points {
		years = append(years, y)
	}
	sort.Ints(years)

	fmt.Println("year   points   weeks")
	for _, y := range years {
		fmt.Printf("%d %8s %7d\n", y, humanize.Comma(int64(points[y])), len(weeks[y]))
	}
}

func (s *session) printMetrics(args []string) {
	tr := s.demand
	if len(args) > 0 {
		switch args[0] {
		case "demand":
		case "residual":
			if s.residual == nil {
				log.Println("No residual series; renewable inputs were not loaded")
				return
			}
			tr = s.residual
		default:
			log.Printf("Unknown series: %s (demand or residual)", args[0])
			return
		}
	}

	yearFilter := 0
	if len(args) > 1 {
		y, err := strconv.Atoi(args[1])
		if err != nil {
			log.Printf("Invalid year: %s", args[1])
			return
		}
		yearFilter = y
	}

	assigned := temporal.AssignWeeks(tr, s.yearType, s.startYear, s.endYear)
	table := temporal.WeekMetricsTable(assigned, s.yearType)

	fmt.Println("year week  start        total          mean          max           min")
	for _, wm := range table {
		if yearFilter != 0 && wm.LabelYear != yearFilter {
			continue
		}
		fmt.Printf("%d  %3d  %s %13s %13s %13s %13s\n",
			wm.LabelYear, wm.WeekOfYear, wm.WeekStart.Format("2006-01-02"),
			humanize.CommafWithDigits(wm.Total, 1),
			humanize.CommafWithDigits(wm.Mean, 1),
			humanize.CommafWithDigits(wm.Max, 1),
			humanize.CommafWithDigits(wm.Min, 1))
	}
}

func (s *session) setCriteria(args []string) {
	if len(args) == 0 {
		log.Println("Usage: select <criterion>... | select none")
		return
	}
	if args[0] == "none" {
		s.criteria = nil
		log.Println("Criteria cleared")
		return
	}
	criteria := make([]model.Criterion, 0, len(args))
	for _, name := range args {
		c := model.Criterion(name)
		if _, ok := model.Criteria[c]; !ok {
			log.Printf("Unknown criterion %q; supported: %s", name, strings.Join(model.CriterionNames(), ", "))
			return
		}
		criteria = append(criteria, c)
	}
	s.criteria = criteria
	log.Printf("Selected %d criteria", len(criteria))
}

func (s *session) setFixed(args []string) {
	if len(args) == 0 {
		log.Println("Usage: fixed <week>... | fixed none")
		return
	}
	if args[0] == "none" {
		s.fixed = nil
		log.Println("Fixed weeks cleared")
		return
	}
	weeks := make([]int, 0, len(args))
	for _, a := range args {
		w, err := strconv.Atoi(a)
		if err != nil {
			log.Printf("Invalid week number: %s", a)
			return
		}
		weeks = append(weeks, w)
	}
	s.fixed = weeks
	log.Printf("Fixed weeks set to %v", weeks)
}

func (s *session) setOption(args []string) {
	if len(args) != 2 {
		log.Println("Usage: set <year-type|start|end|resolution> <value>")
		return
	}
	switch args[0] {
	case "year-type":
		yt := model.YearType(args[1])
		if yt != model.YearCalendar && yt != model.YearFinancial {
			log.Printf("Year type must be %s or %s", model.YearCalendar, model.YearFinancial)
			return
		}
		s.yearType = yt
	case "start", "end", "resolution":
		v, err := strconv.Atoi(args[1])
		if err != nil || v <= 0 {
			log.Printf("Invalid value: %s", args[1])
			return
		}
		switch args[0] {
		case "start":
			s.startYear = v
		case "end":
			s.endYear = v
		case "resolution":
			s.resolutionMin = v
		}
	default:
		log.Printf("Unknown option: %s", args[0])
		return
	}
	log.Printf("Set %s to %s", args[0], args[1])
}

func (s *session) run() {
	snaps, err := grid.BuildSnapshots(s.startYear, s.endYear, s.yearType, s.resolutionMin)
	if err != nil {
		log.Printf("Building snapshots: %v", err)
		return
	}
	if len(s.periods) > 0 {
		if snaps, err = grid.TagInvestmentPeriods(snaps, s.periods, s.yearType); err != nil {
			log.Printf("Tagging investment periods: %v", err)
			return
		}
	}

	req := temporal.Request{
		Criteria:   s.criteria,
		FixedWeeks: s.fixed,
		YearType:   s.yearType,
		StartYear:  s.startYear,
		EndYear:    s.endYear,
	}
	res, err := temporal.Reduce(req, temporal.Inputs{
		Demand:    s.demand,
		Renewable: s.renewable,
		Snapshots: snaps,
	})
	if err != nil {
		log.Printf("Reduction failed: %v", err)
		return
	}
	s.lastResult = res

	fmt.Printf("Kept %s of %s snapshots across %d intervals\n",
		humanize.Comma(int64(len(res.Snapshots))), humanize.Comma(int64(len(snaps))), len(res.Intervals))
	for _, w := range res.Weeks {
		names := make([]string, len(w.Criteria))
		for i, c := range w.Criteria {
			names[i] = string(c)
		}
		fmt.Printf("  %d week %2d  starts %s  (%s)\n",
			w.LabelYear, w.WeekOfYear, w.WeekStart.Format("2006-01-02"), strings.Join(names, ", "))
	}
}

func (s *session) printRanges() {
	if s.lastResult == nil {
		log.Println("No run yet; use 'run' first")
		return
	}
	for _, iv := range s.lastResult.Intervals {
		fmt.Printf("  (%s, %s]\n", iv.Start.Format("2006-01-02 15:04"), iv.End.Format("2006-01-02 15:04"))
	}
	fmt.Printf("%d snapshots retained\n", len(s.lastResult.Snapshots))
}

// historyFilePath returns the persistent history location under the
// user cache directory.
func historyFilePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // No history if we can't find home
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheDir, "repweeks")
	_ = os.MkdirAll(dir, 0750)
	return filepath.Join(dir, "explore_history")
}
