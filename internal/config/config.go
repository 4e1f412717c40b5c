package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"repweeks/internal/model"
	"repweeks/internal/temporal"
)

// Config is the run configuration for reduction commands.
type Config struct {
	Temporal   TemporalConfig   `yaml:"temporal"`
	Investment InvestmentConfig `yaml:"investment"`
	Traces     TracesConfig     `yaml:"traces"`
	Output     OutputConfig     `yaml:"output"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Debug      bool             `yaml:"debug"`
}

type TemporalConfig struct {
	ResolutionMin int               `yaml:"resolution_min"`
	YearType      string            `yaml:"year_type"`
	StartYear     int               `yaml:"start_year"`
	EndYear       int               `yaml:"end_year"`
	Aggregation   AggregationConfig `yaml:"aggregation"`
}

type AggregationConfig struct {
	RepresentativeWeeks      []int    `yaml:"representative_weeks"`
	NamedRepresentativeWeeks []string `yaml:"named_representative_weeks"`
}

type InvestmentConfig struct {
	Periods      []int   `yaml:"periods"`
	DiscountRate float64 `yaml:"discount_rate"`
}

type TracesConfig struct {
	DemandDir      string `yaml:"demand_dir"`
	RenewableDir   string `yaml:"renewable_dir"`
	GeneratorsFile string `yaml:"generators_file"`
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Temporal: TemporalConfig{
			ResolutionMin: 30,
			YearType:      string(model.YearFinancial),
		},
		Output: OutputConfig{Path: "snapshots.csv"},
		Kafka:  KafkaConfig{Topic: "repweeks.results"},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file at
// path (optional), then REPWEEKS_* environment overrides, and validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvironmentVariables(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvironmentVariables(cfg *Config) {
	if v := os.Getenv("REPWEEKS_DEMAND_DIR"); v != "" {
		cfg.Traces.DemandDir = v
	}
	if v := os.Getenv("REPWEEKS_RENEWABLE_DIR"); v != "" {
		cfg.Traces.RenewableDir = v
	}
	if v := os.Getenv("REPWEEKS_GENERATORS_FILE"); v != "" {
		cfg.Traces.GeneratorsFile = v
	}
	if v := os.Getenv("REPWEEKS_OUTPUT"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("REPWEEKS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REPWEEKS_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("REPWEEKS_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}

// Validate collects every configuration problem into one error.
func (c *Config) Validate() error {
	var errs []string

	t := c.Temporal
	if t.ResolutionMin <= 0 {
		errs = append(errs, fmt.Sprintf("temporal.resolution_min must be positive, got %d", t.ResolutionMin))
	}
	switch model.YearType(t.YearType) {
	case model.YearCalendar, model.YearFinancial:
	default:
		errs = append(errs, fmt.Sprintf("temporal.year_type must be calendar or fy, got %q", t.YearType))
	}
	if t.StartYear <= 0 {
		errs = append(errs, "temporal.start_year is required")
	} else if t.EndYear < t.StartYear {
		errs = append(errs, fmt.Sprintf("temporal.end_year %d is before start_year %d", t.EndYear, t.StartYear))
	}

	for _, name := range t.Aggregation.NamedRepresentativeWeeks {
		if _, ok := model.Criteria[model.Criterion(name)]; !ok {
			errs = append(errs, fmt.Sprintf("unknown named week criterion %q; supported values: %s",
				name, strings.Join(model.CriterionNames(), ", ")))
		}
	}
	for _, w := range t.Aggregation.RepresentativeWeeks {
		if w < 1 {
			errs = append(errs, fmt.Sprintf("representative week %d is not positive", w))
		}
	}

	if r := c.Investment.DiscountRate; r < 0 || r >= 1 {
		errs = append(errs, fmt.Sprintf("investment.discount_rate must be in [0, 1), got %v", r))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// NamedCriteria returns the configured named week criteria as typed values.
func (c *Config) NamedCriteria() []model.Criterion {
	out := make([]model.Criterion, len(c.Temporal.Aggregation.NamedRepresentativeWeeks))
	for i, name := range c.Temporal.Aggregation.NamedRepresentativeWeeks {
		out[i] = model.Criterion(name)
	}
	return out
}

// Request builds the reduction request this configuration describes.
func (c *Config) Request() temporal.Request {
	return temporal.Request{
		Criteria:   c.NamedCriteria(),
		FixedWeeks: c.Temporal.Aggregation.RepresentativeWeeks,
		YearType:   model.YearType(c.Temporal.YearType),
		StartYear:  c.Temporal.StartYear,
		EndYear:    c.Temporal.EndYear,
	}
}
