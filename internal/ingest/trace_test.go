package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceParser_Parse(t *testing.T) {
	input := `datetime,value
2024-01-01 00:30:00,1234.5
2024-01-01 01:00:00,1250.0`

	parser := &TraceParser{}
	tr, err := parser.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, tr, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC), tr[0].Timestamp)
	assert.InDelta(t, 1234.5, tr[0].Value, 0.001)
	assert.InDelta(t, 1250.0, tr[1].Value, 0.001)
}

func TestTraceParser_ISOStamps(t *testing.T) {
	input := `datetime,value
2024-01-01T00:30:00,10.0`

	parser := &TraceParser{}
	tr, err := parser.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, tr, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC), tr[0].Timestamp)
}

func TestTraceParser_InvalidHeader(t *testing.T) {
	input := `time,value
2024-01-01 00:30:00,10.0`

	parser := &TraceParser{}
	_, err := parser.Parse(strings.NewReader(input))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "datetime")
}

func TestTraceParser_BadValue(t *testing.T) {
	input := `datetime,value
2024-01-01 00:30:00,not-a-number`

	parser := &TraceParser{}
	_, err := parser.Parse(strings.NewReader(input))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestTraceParser_BadStamp(t *testing.T) {
	input := `datetime,value
01/01/2024,10.0`

	parser := &TraceParser{}
	_, err := parser.Parse(strings.NewReader(input))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing datetime")
}

func TestTraceParser_EmptyInput(t *testing.T) {
	parser := &TraceParser{}
	_, err := parser.Parse(strings.NewReader(""))

	assert.Error(t, err)
}

func TestLoadTraceDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "nsw.csv"), "datetime,value\n2024-01-01 00:30:00,100.0\n")
	writeFile(t, filepath.Join(dir, "vic.csv"), "datetime,value\n2024-01-01 00:30:00,80.0\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignore me")

	traces, err := LoadTraceDir(dir)

	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Contains(t, traces, "nsw")
	assert.Contains(t, traces, "vic")
	assert.InDelta(t, 100.0, traces["nsw"][0].Value, 0.001)
}

func TestLoadTraceDir_Empty(t *testing.T) {
	_, err := LoadTraceDir(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trace files")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
