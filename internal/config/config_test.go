package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repweeks/internal/model"
)

const sampleYAML = `temporal:
  resolution_min: 30
  year_type: calendar
  start_year: 2024
  end_year: 2025
  aggregation:
    representative_weeks: [1, 12]
    named_representative_weeks:
      - peak-demand-week
      - residual-minimum-demand-week
investment:
  periods: [2024]
  discount_rate: 0.05
traces:
  demand_dir: data/demand
  renewable_dir: data/renewables
  generators_file: data/generators.csv
output:
  path: out/snapshots.csv
kafka:
  brokers: [localhost:9092]
  topic: weeks.results
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))

	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Temporal.ResolutionMin)
	assert.Equal(t, "calendar", cfg.Temporal.YearType)
	assert.Equal(t, 2024, cfg.Temporal.StartYear)
	assert.Equal(t, []int{1, 12}, cfg.Temporal.Aggregation.RepresentativeWeeks)
	assert.Equal(t, []model.Criterion{
		model.CriterionPeakDemand,
		model.CriterionResidualMinimumDemand,
	}, cfg.NamedCriteria())
	assert.Equal(t, "data/demand", cfg.Traces.DemandDir)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "weeks.results", cfg.Kafka.Topic)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30, cfg.Temporal.ResolutionMin)
	assert.Equal(t, "fy", cfg.Temporal.YearType)
	assert.Equal(t, "snapshots.csv", cfg.Output.Path)
	assert.Equal(t, "repweeks.results", cfg.Kafka.Topic)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("REPWEEKS_DEMAND_DIR", "/mnt/traces")
	t.Setenv("REPWEEKS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REPWEEKS_DEBUG", "true")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))

	require.NoError(t, err)
	assert.Equal(t, "/mnt/traces", cfg.Traces.DemandDir)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Debug)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Temporal.ResolutionMin = 0
	cfg.Temporal.YearType = "iso"
	cfg.Temporal.StartYear = 2025
	cfg.Temporal.EndYear = 2024
	cfg.Temporal.Aggregation.NamedRepresentativeWeeks = []string{"busiest-week"}

	err := cfg.Validate()

	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "resolution_min")
	assert.Contains(t, msg, "year_type")
	assert.Contains(t, msg, "end_year")
	assert.Contains(t, msg, "busiest-week")
}

func TestValidate_DiscountRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Temporal.StartYear = 2024
	cfg.Temporal.EndYear = 2024
	cfg.Investment.DiscountRate = 1.5

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "discount_rate")
}

func TestRequest(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	req := cfg.Request()
	assert.Equal(t, model.YearCalendar, req.YearType)
	assert.Equal(t, 2024, req.StartYear)
	assert.Equal(t, 2025, req.EndYear)
	assert.Equal(t, []int{1, 12}, req.FixedWeeks)
	assert.Len(t, req.Criteria, 2)
}
