package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	"repweeks/internal/api"
	"repweeks/internal/config"
	"repweeks/internal/grid"
	"repweeks/internal/ingest"
	"repweeks/internal/logging"
	"repweeks/internal/model"
	"repweeks/internal/publish"
	"repweeks/internal/store"
	"repweeks/internal/temporal"
	"repweeks/internal/trace"
	"repweeks/internal/ws"
)

// engine holds the loaded inputs and executes reductions for both the
// REST and WebSocket transports. Every successful run gets a fresh ID
// and is published to Kafka when a publisher is configured.
type engine struct {
	inputs   temporal.Inputs
	residual model.Trace
	pub      *publish.Publisher
	log      *logging.Logger
}

func (e *engine) Run(req temporal.Request) (string, *temporal.Result, error) {
	res, err := temporal.Reduce(req, e.inputs)
	if err != nil {
		return "", nil, err
	}
	runID := uuid.NewString()

	if e.pub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		msg := publish.NewResultMessage(runID, req, res, time.Now().UTC())
		if err := e.pub.PublishResult(ctx, msg); err != nil {
			log.Printf("Kafka publish: %v", err)
		}
	}
	return runID, res, nil
}

func (e *engine) WeeklyMetrics(series model.SeriesKind, yearType model.YearType, startYear, endYear int) ([]model.WeekMetrics, error) {
	tr := e.inputs.Demand
	if series == model.SeriesResidual {
		if e.residual == nil {
			return nil, &temporal.ConfigurationError{
				Field:   "series",
				Message: "renewable generation inputs required for residual demand metrics",
			}
		}
		tr = e.residual
	}
	assigned := temporal.AssignWeeks(tr, yearType, startYear, endYear)
	return temporal.WeekMetricsTable(assigned, yearType), nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	addr := flag.String("addr", ":8080", "listen address")
	logJSON := flag.Bool("log-json", false, "emit JSON log records")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *debug {
		cfg.Debug = true
	}
	logger := logging.NewLogger(cfg.Debug)
	if *logJSON {
		logger = logging.NewJSONLogger(cfg.Debug)
	}

	dataStore := store.New()
	demand, err := loadDemand(cfg, dataStore, logger)
	if err != nil {
		log.Fatalf("Failed to load demand traces: %v", err)
	}

	renewable, err := loadRenewable(cfg, dataStore, demand, logger)
	if err != nil {
		log.Fatalf("Failed to load renewable traces: %v", err)
	}

	snaps, err := buildSnapshots(cfg)
	if err != nil {
		log.Fatalf("Failed to build snapshots: %v", err)
	}

	horizon, ok := dataStore.GlobalRange()
	if !ok {
		log.Fatal("No trace data loaded")
	}
	log.Printf("Data loaded: %s to %s, %d snapshots",
		horizon.Start.Format("2006-01-02"), horizon.End.Format("2006-01-02"), len(snaps))

	eng := &engine{
		inputs: temporal.Inputs{
			Demand:    demand,
			Renewable: renewable,
			Snapshots: snaps,
		},
		log: logger.WithComponent("engine"),
	}
	if renewable != nil {
		eng.residual = trace.Residual(demand, renewable)
		dataStore.Add("residual", eng.residual)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		eng.pub = publish.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.WithComponent("kafka"))
		defer eng.pub.Close()
		log.Printf("Publishing results to %s", cfg.Kafka.Topic)
	}

	hub := ws.NewHub()
	wsHandler := ws.NewHandler(hub, eng, dataStore)

	metrics := api.NewMetrics()
	apiServer := api.NewServer(eng, dataStore, cfg.Request(), ws.NewNotifier(hub), metrics, logger)

	router := apiServer.NewRouter()
	router.Handle("/ws", wsHandler)

	log.Printf("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, handlers.LoggingHandler(os.Stdout, router)); err != nil {
		log.Fatal(err)
	}
}

// loadDemand reads the per-region demand CSVs, registers each region in
// the store, and returns the regions summed into one trace.
func loadDemand(cfg *config.Config, s *store.Store, logger *logging.Logger) (model.Trace, error) {
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
		s.Add("demand/"+name, byRegion[name])
		traces = append(traces, byRegion[name])
		points += len(byRegion[name])
	}
	logger.LogTracesLoaded("demand", len(traces), points)

	demand := trace.SumTraces(traces)
	s.Add("demand", demand)
	return demand, nil
}

// loadRenewable reads the unit capacity-factor CSVs and the fleet file,
// registers each unit in the store, and returns the fleet generation
// trace. Returns nil when no renewable directory is configured.
func loadRenewable(cfg *config.Config, s *store.Store, demand model.Trace, logger *logging.Logger) (model.Trace, error) {
	if cfg.Traces.RenewableDir == "" {
		return nil, nil
	}
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

	points := 0
	for name, u := range units {
		s.Add("unit/"+name, u)
		points += len(u)
	}
	logger.LogTracesLoaded("renewable", len(units), points)

	renewable, err := trace.FleetGeneration(fleet, units, demand)
	if err != nil {
		return nil, err
	}
	s.Add("renewable", renewable)
	return renewable, nil
}

func buildSnapshots(cfg *config.Config) (model.SnapshotSet, error) {
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
