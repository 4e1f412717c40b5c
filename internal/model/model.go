package model

import (
	"sort"
	"time"
)

// Criterion names a rule for picking one representative week per model year.
type Criterion string

const (
	CriterionPeakDemand              Criterion = "peak-demand-week"
	CriterionMinimumDemand           Criterion = "minimum-demand-week"
	CriterionPeakConsumption         Criterion = "peak-consumption-week"
	CriterionResidualPeakDemand      Criterion = "residual-peak-demand-week"
	CriterionResidualMinimumDemand   Criterion = "residual-minimum-demand-week"
	CriterionResidualPeakConsumption Criterion = "residual-peak-consumption-week"
)

// SeriesKind selects the aggregated series a criterion is scored on.
type SeriesKind string

const (
	SeriesDemand   SeriesKind = "demand"
	SeriesResidual SeriesKind = "residual"
)

// MetricKind selects the weekly statistic a criterion compares.
type MetricKind string

const (
	MetricTotal MetricKind = "total"
	MetricMean  MetricKind = "mean"
)

// Direction says whether a criterion wants the largest or smallest metric.
type Direction string

const (
	DirectionMax Direction = "max"
	DirectionMin Direction = "min"
)

// CriterionSpec describes how one criterion scores candidate weeks.
type CriterionSpec struct {
	Series    SeriesKind
	Metric    MetricKind
	Direction Direction
}

// Criteria maps every supported criterion to its scoring rule. The table is
// fixed; callers must not mutate it.
var Criteria = map[Criterion]CriterionSpec{
	CriterionPeakDemand:              {Series: SeriesDemand, Metric: MetricTotal, Direction: DirectionMax},
	CriterionMinimumDemand:           {Series: SeriesDemand, Metric: MetricTotal, Direction: DirectionMin},
	CriterionPeakConsumption:         {Series: SeriesDemand, Metric: MetricMean, Direction: DirectionMax},
	CriterionResidualPeakDemand:      {Series: SeriesResidual, Metric: MetricTotal, Direction: DirectionMax},
	CriterionResidualMinimumDemand:   {Series: SeriesResidual, Metric: MetricTotal, Direction: DirectionMin},
	CriterionResidualPeakConsumption: {Series: SeriesResidual, Metric: MetricMean, Direction: DirectionMax},
}

// CriterionNames returns the supported criterion names sorted alphabetically.
func CriterionNames() []string {
	names := make([]string, 0, len(Criteria))
	for c := range Criteria {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}

// YearType selects how model years are delimited.
type YearType string

const (
	// YearCalendar runs 1 January through 31 December.
	YearCalendar YearType = "calendar"
	// YearFinancial runs 1 July through 30 June, labelled by the ending year.
	YearFinancial YearType = "fy"
)

// TracePoint is one sample of a series. Timestamp marks the end of the
// sampling interval the value covers.
type TracePoint struct {
	Timestamp time.Time
	Value     float64
}

// Trace is a time-ordered series of points.
type Trace []TracePoint

// Snapshot is one timestep of the optimisation grid.
type Snapshot struct {
	Timestamp        time.Time
	InvestmentPeriod int
}

// SnapshotSet is an ordered snapshot grid.
type SnapshotSet []Snapshot

// WeekKey identifies one Monday-aligned week inside a model year.
type WeekKey struct {
	LabelYear  int
	WeekOfYear int
}

// WeekMetrics holds the aggregate statistics of one week's samples.
type WeekMetrics struct {
	WeekKey
	WeekStart time.Time
	Total     float64
	Mean      float64
	Max       float64
	Min       float64
	Count     int
}

// Interval is a selected week's span in stamp space. A stamp t belongs to
// the interval when Start < t <= End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether stamp t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return t.After(iv.Start) && !t.After(iv.End)
}

// SelectedWeek is one chosen week together with every criterion that chose it.
type SelectedWeek struct {
	WeekKey
	WeekStart time.Time
	Criteria  []Criterion
}

// FuelType classifies generator fleet units.
type FuelType string

const (
	FuelSolar   FuelType = "solar"
	FuelWind    FuelType = "wind"
	FuelHydro   FuelType = "hydro"
	FuelCoal    FuelType = "coal"
	FuelGas     FuelType = "gas"
	FuelBattery FuelType = "battery"
)

// FuelTypes is the closed set of fuel types accepted by fleet ingestion.
var FuelTypes = map[FuelType]bool{
	FuelSolar:   true,
	FuelWind:    true,
	FuelHydro:   true,
	FuelCoal:    true,
	FuelGas:     true,
	FuelBattery: true,
}

// RenewableFuels marks the fuel types that feed the renewable generation
// series used for residual demand.
var RenewableFuels = map[FuelType]bool{
	FuelSolar: true,
	FuelWind:  true,
}

// Generator is one unit of the generator fleet. Unit traces are per-MW
// capacity factors; CapacityMW scales them to output.
type Generator struct {
	ID         string
	Fuel       FuelType
	CapacityMW float64
}
