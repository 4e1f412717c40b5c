package ws

import (
	"log"

	"repweeks/internal/temporal"
)

// Notifier broadcasts finished reductions to the WebSocket hub. It lets
// other transports announce runs they triggered, so every connected
// client sees the same results regardless of where a run started.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) NotifyResult(runID string, req temporal.Request, res *temporal.Result) {
	msg, err := NewEnvelope(TypeReduceResult, ResultFromReduction(runID, req, res))
	if err != nil {
		log.Printf("Error marshaling reduce:result: %v", err)
		return
	}
	n.hub.Broadcast(msg)
}
