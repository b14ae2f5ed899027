package turnqueue

import (
	"fmt"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/google/uuid"
)

// NewTicket builds a waiting ticket with the given sequence number.
// The service must be one of the configured service types.
func NewTicket(settings types.Settings, service string, priority types.PriorityClass, number int, now time.Time) (*types.Ticket, error) {
	if !settings.HasService(service) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServiceType, service)
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	if number < 1 {
		panic(fmt.Sprintf("turnqueue: ticket number must be positive, got %d", number))
	}

	return &types.Ticket{
		ID:        uuid.New().String(),
		Number:    number,
		Service:   service,
		Priority:  priority,
		State:     types.StateWaiting,
		CreatedAt: now,
	}, nil
}
