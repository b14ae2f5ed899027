package notify

import (
	"context"
	"encoding/json"

	"github.com/SSTConexionSalud/sistema-turnos/internal/metrics"
	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/rs/zerolog"
)

// Broadcaster is the part of the websocket hub used to reach displays
type Broadcaster interface {
	BroadcastToCounter(counter int, message []byte)
}

// HubNotifier pushes call notices to connected display screens
type HubNotifier struct {
	hub    Broadcaster
	logger zerolog.Logger
}

// NewHubNotifier creates a notifier over hub
func NewHubNotifier(hub Broadcaster, logger zerolog.Logger) *HubNotifier {
	return &HubNotifier{hub: hub, logger: logger}
}

func (n *HubNotifier) TicketCalled(_ context.Context, notice types.CallNotice) {
	data, err := json.Marshal(notice)
	if err != nil {
		metrics.Get().RecordNotifyFailure("ws")
		n.logger.Error().Err(err).Int("number", notice.Number).Msg("failed to marshal call notice")
		return
	}
	n.hub.BroadcastToCounter(notice.Counter, data)
}
