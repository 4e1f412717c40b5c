package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repweeks/internal/model"
	"repweeks/internal/store"
	"repweeks/internal/temporal"
)

// testRunner executes reductions against fixed inputs and stamps every
// run with the same identifier.
type testRunner struct {
	inputs temporal.Inputs
}

func (r *testRunner) Run(req temporal.Request) (string, *temporal.Result, error) {
	res, err := temporal.Reduce(req, r.inputs)
	if err != nil {
		return "", nil, err
	}
	return "test-run", res, nil
}

// testFixtures builds a runner and store over two January 2024 weeks,
// with the demand peak in the second week.
func testFixtures() (*testRunner, *store.Store) {
	stamps := []time.Time{
		time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 13, 12, 0, 0, 0, time.UTC),
	}
	values := []float64{100, 120, 300, 250}

	demand := make(model.Trace, len(stamps))
	snaps := make(model.SnapshotSet, len(stamps))
	for i, ts := range stamps {
		demand[i] = model.TracePoint{Timestamp: ts, Value: values[i]}
		snaps[i] = model.Snapshot{Timestamp: ts, InvestmentPeriod: 2024}
	}

	runner := &testRunner{inputs: temporal.Inputs{Demand: demand, Snapshots: snaps}}
	s := store.New()
	s.Add("demand/nsw", demand)
	return runner, s
}

// dialHandler sets up a test server with the handler and returns a WS connection.
func dialHandler(t *testing.T, handler *Handler) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

// readJSON reads the next JSON message from the connection.
func readJSON(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

// sendJSON sends a JSON message on the connection.
func sendJSON(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	data, err := NewEnvelope(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestHandler_DataLoadedOnConnect(t *testing.T) {
	runner, traces := testFixtures()
	handler := NewHandler(NewHub(), runner, traces)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	env := readJSON(t, conn)
	require.Equal(t, TypeDataLoaded, env.Type)

	var dl DataLoadedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &dl))

	require.Len(t, dl.Traces, 1)
	assert.Equal(t, "demand/nsw", dl.Traces[0].Name)
	assert.Equal(t, 4, dl.Traces[0].Points)
	assert.Equal(t, "2024-01-03T12:00:00Z", dl.Traces[0].Start)
	assert.Equal(t, "2024-01-13T12:00:00Z", dl.Traces[0].End)
	assert.Equal(t, "2024-01-03T12:00:00Z", dl.HorizonStart)
	assert.Equal(t, "2024-01-13T12:00:00Z", dl.HorizonEnd)
}

func TestHandler_CriteriaList(t *testing.T) {
	runner, traces := testFixtures()
	handler := NewHandler(NewHub(), runner, traces)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn) // data:loaded

	sendJSON(t, conn, TypeCriteriaList, nil)

	env := readJSON(t, conn)
	require.Equal(t, TypeCriteriaInfo, env.Type)

	var ci CriteriaInfoPayload
	require.NoError(t, json.Unmarshal(env.Payload, &ci))
	assert.Len(t, ci.Criteria, 6)
}

func TestHandler_ReduceRun(t *testing.T) {
	runner, traces := testFixtures()
	handler := NewHandler(NewHub(), runner, traces)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn) // data:loaded

	sendJSON(t, conn, TypeReduceRun, ReduceRunPayload{
		Criteria:  []string{"peak-demand-week"},
		YearType:  "calendar",
		StartYear: 2024,
		EndYear:   2024,
	})

	env := readJSON(t, conn)
	require.Equal(t, TypeReduceResult, env.Type)

	var res ReduceResultPayload
	require.NoError(t, json.Unmarshal(env.Payload, &res))

	assert.Equal(t, "test-run", res.RunID)
	assert.Equal(t, "calendar", res.YearType)
	assert.Equal(t, 2024, res.StartYear)
	assert.Equal(t, 2024, res.EndYear)

	require.Len(t, res.Weeks, 1)
	assert.Equal(t, 2024, res.Weeks[0].Year)
	assert.Equal(t, 2, res.Weeks[0].Week)
	assert.Equal(t, "2024-01-08T00:00:00Z", res.Weeks[0].WeekStart)
	assert.Equal(t, []string{"peak-demand-week"}, res.Weeks[0].Criteria)

	require.Len(t, res.Intervals, 1)
	assert.Equal(t, "2024-01-08T00:00:00Z", res.Intervals[0].Start)
	assert.Equal(t, "2024-01-15T00:00:00Z", res.Intervals[0].End)

	assert.Equal(t, 2, res.SnapshotCount)
}

func TestHandler_ReduceRunUnknownCriterion(t *testing.T) {
	runner, traces := testFixtures()
	handler := NewHandler(NewHub(), runner, traces)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn) // data:loaded

	sendJSON(t, conn, TypeReduceRun, ReduceRunPayload{
		Criteria:  []string{"wettest-week"},
		YearType:  "calendar",
		StartYear: 2024,
		EndYear:   2024,
	})

	env := readJSON(t, conn)
	require.Equal(t, TypeError, env.Type)

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Contains(t, p.Message, "unsupported named weeks")
	assert.Contains(t, p.Message, "wettest-week")
}

func TestHandler_InvalidMessage(t *testing.T) {
	runner, traces := testFixtures()
	handler := NewHandler(NewHub(), runner, traces)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn) // data:loaded

	// Garbage should be dropped without killing the connection
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	sendJSON(t, conn, TypeCriteriaList, nil)
	env := readJSON(t, conn)
	assert.Equal(t, TypeCriteriaInfo, env.Type)
}

func TestHandler_UnknownMessageType(t *testing.T) {
	runner, traces := testFixtures()
	handler := NewHandler(NewHub(), runner, traces)

	conn, cleanup := dialHandler(t, handler)
	defer cleanup()

	readJSON(t, conn) // data:loaded

	sendJSON(t, conn, "sim:start", nil)

	sendJSON(t, conn, TypeCriteriaList, nil)
	env := readJSON(t, conn)
	assert.Equal(t, TypeCriteriaInfo, env.Type)
}

func TestHandler_ResultBroadcastToAllClients(t *testing.T) {
	runner, traces := testFixtures()
	hub := NewHub()
	handler := NewHandler(hub, runner, traces)

	conn1, cleanup1 := dialHandler(t, handler)
	defer cleanup1()
	conn2, cleanup2 := dialHandler(t, handler)
	defer cleanup2()

	readJSON(t, conn1) // data:loaded
	readJSON(t, conn2) // data:loaded

	sendJSON(t, conn1, TypeReduceRun, ReduceRunPayload{
		Criteria:  []string{"peak-demand-week"},
		YearType:  "calendar",
		StartYear: 2024,
		EndYear:   2024,
	})

	env1 := readJSON(t, conn1)
	env2 := readJSON(t, conn2)
	assert.Equal(t, TypeReduceResult, env1.Type)
	assert.Equal(t, TypeReduceResult, env2.Type)
}
