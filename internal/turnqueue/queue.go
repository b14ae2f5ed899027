package turnqueue

import (
	"fmt"
	"sort"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
)

// TicketQueue holds waiting tickets in call order
type TicketQueue struct {
	waiting []*types.Ticket
}

// NewTicketQueue creates an empty queue
func NewTicketQueue() *TicketQueue {
	return &TicketQueue{
		waiting: make([]*types.Ticket, 0),
	}
}

// Enqueue inserts a waiting ticket at its priority position
func (q *TicketQueue) Enqueue(t *types.Ticket) error {
	if t.State != types.StateWaiting {
		return fmt.Errorf("%w: ticket %d is %s", ErrInvalidState, t.Number, t.State)
	}

	// First position whose ticket is called after t; equal keys keep
	// insertion order.
	i := sort.Search(len(q.waiting), func(i int) bool {
		return Compare(t, q.waiting[i]) < 0
	})
	q.waiting = append(q.waiting, nil)
	copy(q.waiting[i+1:], q.waiting[i:])
	q.waiting[i] = t
	return nil
}

// PeekNext returns the ticket that would be called next without removing it
func (q *TicketQueue) PeekNext() (*types.Ticket, bool) {
	if len(q.waiting) == 0 {
		return nil, false
	}
	return q.waiting[0], true
}

// Remove drops a specific ticket, reporting whether it was queued. The
// manager calls it with the ticket PeekNext returned.
func (q *TicketQueue) Remove(ticketID string) bool {
	for i, t := range q.waiting {
		if t.ID == ticketID {
			last := len(q.waiting) - 1
			copy(q.waiting[i:], q.waiting[i+1:])
			q.waiting[last] = nil
			q.waiting = q.waiting[:last]
			return true
		}
	}
	return false
}

// Len returns the number of waiting tickets
func (q *TicketQueue) Len() int {
	return len(q.waiting)
}

// Snapshot returns copies of the waiting tickets in call order
func (q *TicketQueue) Snapshot() []types.Ticket {
	out := make([]types.Ticket, 0, len(q.waiting))
	for _, t := range q.waiting {
		out = append(out, t.Clone())
	}
	return out
}

// Wipe clears the queue, returning the number of dropped tickets
func (q *TicketQueue) Wipe() int {
	count := len(q.waiting)
	q.waiting = make([]*types.Ticket, 0)
	return count
}
