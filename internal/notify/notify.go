// Package notify delivers "ticket called" intents to whatever announces
// them: display screens over websocket, or other systems over Kafka.
package notify

import (
	"context"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
)

// Notifier receives an intent for every ticket called to a counter.
// Implementations must not block the caller for long.
type Notifier interface {
	TicketCalled(ctx context.Context, notice types.CallNotice)
}

// Multi fans a notice out to several notifiers in order
type Multi []Notifier

func (m Multi) TicketCalled(ctx context.Context, notice types.CallNotice) {
	for _, n := range m {
		n.TicketCalled(ctx, notice)
	}
}

// Noop discards every notice
type Noop struct{}

func (Noop) TicketCalled(context.Context, types.CallNotice) {}
