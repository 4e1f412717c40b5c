package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	charts "github.com/vicanso/go-charts/v2"

	"repweeks/internal/ingest"
	"repweeks/internal/model"
	"repweeks/internal/temporal"
	"repweeks/internal/trace"
)

type YearSummary struct {
	Year      int
	Points    int
	Weeks     int
	EnergyMWh float64
	MeanMW    float64
	PeakMW    float64
	PeakAt    time.Time
}

func main() {
	demandDir := flag.String("demand-dir", "input/demand", "directory containing demand trace CSVs")
	renewDir := flag.String("renewables-dir", "", "directory containing per-unit renewable trace CSVs")
	generatorsFile := flag.String("generators", "", "generator fleet CSV (required with -renewables-dir)")
	yearTypeFlag := flag.String("year-type", "fy", "model year convention: calendar or fy")
	startYear := flag.Int("start-year", 0, "first model year (0 = infer from data)")
	endYear := flag.Int("end-year", 0, "last model year (0 = infer from data)")
	yearFilter := flag.Int("year", 0, "limit weekly tables to one model year (0 = all)")
	chartPath := flag.String("chart", "", "write a weekly energy PNG chart to this path")
	flag.Parse()

	yt := model.YearType(*yearTypeFlag)
	if yt != model.YearCalendar && yt != model.YearFinancial {
		log.Fatalf("Year type must be %s or %s", model.YearCalendar, model.YearFinancial)
	}

	demand := loadDemand(*demandDir)
	if len(demand) == 0 {
		log.Fatal("No trace data loaded")
	}

	first := demand[0].Timestamp
	last := demand[len(demand)-1].Timestamp
	if *startYear == 0 {
		*startYear = temporal.LabelYear(first, yt)
	}
	if *endYear == 0 {
		*endYear = temporal.LabelYear(last, yt)
	}

	assigned := temporal.AssignWeeks(demand, yt, *startYear, *endYear)
	table := temporal.WeekMetricsTable(assigned, yt)
	if len(table) == 0 {
		log.Fatal("No whole weeks inside the requested years")
	}

	intervalHours := sampleInterval(demand).Hours()

	fmt.Println()
	fmt.Println("Demand Trace Statistics")
	fmt.Printf("  Data: %s to %s (%s points, %s years %d-%d)\n",
		first.Format("2006-01-02"), last.Format("2006-01-02"),
		humanize.Comma(int64(len(demand))), yt, *startYear, *endYear)
	fmt.Println()

	summaries := summarizeYears(assigned, table, intervalHours)
	printYearSummaries(summaries)

	for _, s := range summaries {
		if *yearFilter != 0 && s.Year != *yearFilter {
			continue
		}
		fmt.Println()
		fmt.Printf("=== Year %d ===\n", s.Year)
		printWeeklyTable(s.Year, table, intervalHours)
	}

	// Residual sections only when renewable inputs are supplied
	var residualTable []model.WeekMetrics
	if *renewDir != "" {
		renewable := loadRenewable(*renewDir, *generatorsFile, demand)
		residual := trace.Residual(demand, renewable)
		assignedRes := temporal.AssignWeeks(residual, yt, *startYear, *endYear)
		residualTable = temporal.WeekMetricsTable(assignedRes, yt)

		fmt.Println()
		fmt.Println("=== Residual Demand ===")
		resSummaries := summarizeYears(assignedRes, residualTable, intervalHours)
		printYearSummaries(resSummaries)
		for _, s := range resSummaries {
			if *yearFilter != 0 && s.Year != *yearFilter {
				continue
			}
			fmt.Println()
			fmt.Printf("=== Residual Year %d ===\n", s.Year)
			printWeeklyTable(s.Year, residualTable, intervalHours)
		}
	}

	fmt.Println()
	fmt.Println("=== Named Weeks ===")
	printNamedWeeks(table, residualTable)

	if *chartPath != "" {
		if err := writeWeeklyChart(*chartPath, table, residualTable, intervalHours); err != nil {
			log.Fatalf("Writing chart: %v", err)
		}
		fmt.Println()
		fmt.Printf("Wrote weekly energy chart to %s\n", *chartPath)
	}
}

func summarizeYears(assigned []temporal.AssignedPoint, table []model.WeekMetrics, intervalHours float64) []YearSummary {
	byYear := make(map[int]*YearSummary)
	for _, ap := range assigned {
		y := ap.Week.LabelYear
		s, ok := byYear[y]
		if !ok {
			s = &YearSummary{Year: y, PeakMW: ap.Point.Value, PeakAt: ap.Point.Timestamp}
			byYear[y] = s
		}
		s.Points++
		if ap.Point.Value > s.PeakMW {
			s.PeakMW = ap.Point.Value
			s.PeakAt = ap.Point.Timestamp
		}
	}

	totals := make(map[int]float64)
	for _, wm := range table {
		byYear[wm.LabelYear].Weeks++
		totals[wm.LabelYear] += wm.Total
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearSummary, 0, len(years))
	for _, y := range years {
		s := byYear[y]
		s.EnergyMWh = totals[y] * intervalHours
		s.MeanMW = safeDivide(totals[y], float64(s.Points))
		out = append(out, *s)
	}
	return out
}

// --- Output formatting ---

func printYearSummaries(summaries []YearSummary) {
	fmt.Println("  Per-Year Summary:")
	fmt.Printf("   %4s │ %9s │ %5s │ %12s │ %8s │ %8s │ %s\n",
		"Year", "Points", "Weeks", "Energy", "Mean MW", "Peak MW", "Peak At")
	fmt.Printf("  ──────┼───────────┼───────┼──────────────┼──────────┼──────────┼──────────────────\n")
	for _, s := range summaries {
		fmt.Printf("   %4d │ %9s │ %5d │ %12s │ %8.1f │ %8.1f │ %s\n",
			s.Year, humanize.Comma(int64(s.Points)), s.Weeks, formatEnergy(s.EnergyMWh),
			s.MeanMW, s.PeakMW, s.PeakAt.Format("2006-01-02 15:04"))
	}
}

func printWeeklyTable(year int, table []model.WeekMetrics, intervalHours float64) {
	// Find the peak-energy week so it can be flagged in the listing
	peakWeek := 0
	var peakTotal float64
	for _, wm := range table {
		if wm.LabelYear == year && wm.Total > peakTotal {
			peakTotal = wm.Total
			peakWeek = wm.WeekOfYear
		}
	}

	fmt.Printf("   %4s │ %10s │ %12s │ %8s │ %8s │ %8s\n",
		"Week", "Starts", "Energy", "Mean MW", "Max MW", "Min MW")
	fmt.Printf("  ──────┼────────────┼──────────────┼──────────┼──────────┼──────────\n")
	for _, wm := range table {
		if wm.LabelYear != year {
			continue
		}
		marker := ""
		if wm.WeekOfYear == peakWeek {
			marker = " ← peak"
		}
		fmt.Printf("   %4d │ %s │ %12s │ %8.1f │ %8.1f │ %8.1f%s\n",
			wm.WeekOfYear, wm.WeekStart.Format("2006-01-02"), formatEnergy(wm.Total*intervalHours),
			wm.Mean, wm.Max, wm.Min, marker)
	}
}

func printNamedWeeks(demand, residual []model.WeekMetrics) {
	for _, name := range model.CriterionNames() {
		c := model.Criterion(name)
		spec := model.Criteria[c]
		if spec.Series == model.SeriesResidual && residual == nil {
			continue // residual criteria need renewable inputs
		}
		weeks, err := temporal.SelectWeeks([]model.Criterion{c}, demand, residual)
		if err != nil {
			log.Printf("Selecting %s: %v", name, err)
			continue
		}
		fmt.Printf("  %s (%s %s, %s):\n", name, spec.Series, spec.Metric, spec.Direction)
		for _, w := range weeks {
			fmt.Printf("    %d week %2d  starts %s\n", w.LabelYear, w.WeekOfYear, w.WeekStart.Format("2006-01-02"))
		}
	}
}

func writeWeeklyChart(path string, demand, residual []model.WeekMetrics, intervalHours float64) error {
	labels := make([]string, 0, len(demand))
	values := make([]float64, 0, len(demand))
	for _, wm := range demand {
		labels = append(labels, fmt.Sprintf("%d w%02d", wm.LabelYear, wm.WeekOfYear))
		values = append(values, wm.Total*intervalHours)
	}

	series := [][]float64{values}
	legend := []string{"Demand (MWh)"}
	if resValues, ok := alignWeekly(demand, residual, intervalHours); ok {
		series = append(series, resValues)
		legend = append(legend, "Residual (MWh)")
	}

	p, err := charts.LineRender(
		series,
		charts.TitleTextOptionFunc("Weekly Energy"),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc(legend, charts.PositionRight),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(400),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return fmt.Errorf("render weekly chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return fmt.Errorf("encode weekly chart: %w", err)
	}
	return os.WriteFile(path, buf, 0o644)
}

// alignWeekly maps the residual table onto the demand table's week order.
// The residual series is charted only when it covers every demand week;
// zero-filling gaps would read as real lows.
func alignWeekly(demand, residual []model.WeekMetrics, intervalHours float64) ([]float64, bool) {
	if residual == nil {
		return nil, false
	}
	byWeek := make(map[model.WeekKey]float64, len(residual))
	for _, wm := range residual {
		byWeek[wm.WeekKey] = wm.Total * intervalHours
	}
	out := make([]float64, 0, len(demand))
	for _, wm := range demand {
		v, ok := byWeek[wm.WeekKey]
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// --- Data loading ---

func loadDemand(dir string) model.Trace {
	byRegion, err := ingest.LoadTraceDir(dir)
	if err != nil {
		log.Fatalf("Loading demand traces from %s: %v", dir, err)
	}
	names := make([]string, 0, len(byRegion))
	for name := range byRegion {
		names = append(names, name)
	}
	sort.Strings(names)
	traces := make([]model.Trace, 0, len(names))
	for _, name := range names {
		traces = append(traces, byRegion[name])
	}
	return trace.SumTraces(traces)
}

func loadRenewable(dir, generatorsFile string, demand model.Trace) model.Trace {
	if generatorsFile == "" {
		log.Fatal("Renewable traces need -generators for unit capacities")
	}
	units, err := ingest.LoadTraceDir(dir)
	if err != nil {
		log.Fatalf("Loading renewable traces from %s: %v", dir, err)
	}
	f, err := os.Open(generatorsFile)
	if err != nil {
		log.Fatalf("Opening %s: %v", generatorsFile, err)
	}
	defer f.Close()
	fleet, err := (&ingest.FleetParser{}).Parse(f)
	if err != nil {
		log.Fatalf("Parsing %s: %v", generatorsFile, err)
	}
	renewable, err := trace.FleetGeneration(fleet, units, demand)
	if err != nil {
		log.Fatalf("Aggregating renewable generation: %v", err)
	}
	return renewable
}

// --- Helpers ---

// sampleInterval infers the trace resolution from the first pair of stamps.
func sampleInterval(tr model.Trace) time.Duration {
	if len(tr) < 2 {
		return 30 * time.Minute
	}
	return tr[1].Timestamp.Sub(tr[0].Timestamp)
}

func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func formatEnergy(mwh float64) string {
	if mwh >= 1000 {
		return fmt.Sprintf("%.1f GWh", mwh/1000)
	}
	return fmt.Sprintf("%.1f MWh", mwh)
}
