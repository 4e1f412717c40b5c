package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"repweeks/internal/store"
	"repweeks/internal/temporal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Runner executes a reduction against the loaded series and reports
// the run identifier assigned to it.
type Runner interface {
	Run(req temporal.Request) (string, *temporal.Result, error)
}

// Handler manages WebSocket connections and routes reduction requests
// to the runner.
type Handler struct {
	hub    *Hub
	runner Runner
	traces *store.Store
}

func NewHandler(hub *Hub, runner Runner, traces *store.Store) *Handler {
	return &Handler{hub: hub, runner: runner, traces: traces}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	// Tell the new client what series are loaded
	h.sendDataLoaded(client)

	// Read messages from client
	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		return
	}

	switch env.Type {
	case TypeReduceRun:
		var p ReduceRunPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid reduce:run payload: %v", err)
			return
		}
		req := p.Request()
		runID, res, err := h.runner.Run(req)
		if err != nil {
			h.sendError(c, err)
			return
		}
		h.broadcastResult(runID, req, res)

	case TypeCriteriaList:
		reply, err := NewEnvelope(TypeCriteriaInfo, CriteriaFromRegistry())
		if err != nil {
			log.Printf("Error creating criteria:info message: %v", err)
			return
		}
		c.enqueue(reply)

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

func (h *Handler) broadcastResult(runID string, req temporal.Request, res *temporal.Result) {
	msg, err := NewEnvelope(TypeReduceResult, ResultFromReduction(runID, req, res))
	if err != nil {
		log.Printf("Error creating reduce:result message: %v", err)
		return
	}
	h.hub.Broadcast(msg)
}

func (h *Handler) sendError(c *Client, err error) {
	msg, encErr := NewEnvelope(TypeError, ErrorPayload{Message: err.Error()})
	if encErr != nil {
		return
	}
	c.enqueue(msg)
}

func (h *Handler) sendDataLoaded(c *Client) {
	payload := DataLoadedPayload{Traces: make([]TraceInfo, 0)}
	for _, name := range h.traces.Names() {
		info := TraceInfo{Name: name, Points: h.traces.PointCount(name)}
		if rng, ok := h.traces.Range(name); ok {
			info.Start = rng.Start.Format(time.RFC3339)
			info.End = rng.End.Format(time.RFC3339)
		}
		payload.Traces = append(payload.Traces, info)
	}
	if horizon, ok := h.traces.GlobalRange(); ok {
		payload.HorizonStart = horizon.Start.Format(time.RFC3339)
		payload.HorizonEnd = horizon.End.Format(time.RFC3339)
	}

	msg, err := NewEnvelope(TypeDataLoaded, payload)
	if err != nil {
		log.Printf("Error creating data:loaded message: %v", err)
		return
	}
	c.enqueue(msg)
}
