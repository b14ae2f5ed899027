package turnqueue

import (
	"fmt"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
)

// Outcome is how an operator closes a called ticket
type Outcome string

const (
	OutcomeServed Outcome = "served"
	OutcomeNoShow Outcome = "no_show"
)

var outcomeActions = map[Outcome]Action{
	OutcomeServed: ActionServe,
	OutcomeNoShow: ActionNoShow,
}

// Controller applies operator requests after checking them against the
// transition table
type Controller struct {
	mgr *TurnManager
}

// NewController creates a controller over mgr
func NewController(mgr *TurnManager) *Controller {
	return &Controller{mgr: mgr}
}

// Resolve closes a called ticket with the given outcome
func (c *Controller) Resolve(ticketID string, outcome Outcome) (types.Ticket, error) {
	action, ok := outcomeActions[outcome]
	if !ok {
		return types.Ticket{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
	if err := c.precheck(ticketID, action); err != nil {
		return types.Ticket{}, err
	}

	switch action {
	case ActionServe:
		return c.mgr.MarkServed(ticketID)
	default:
		return c.mgr.MarkNoShow(ticketID)
	}
}

// Recall brings a served, no-show or called ticket back to called
func (c *Controller) Recall(ticketID string, counter int) (types.Ticket, error) {
	if err := c.precheck(ticketID, ActionRecall); err != nil {
		return types.Ticket{}, err
	}
	return c.mgr.Recall(ticketID, counter)
}

// precheck rejects requests the table forbids for the ticket's current
// state. The manager checks again under its lock.
func (c *Controller) precheck(ticketID string, action Action) error {
	t, err := c.mgr.Get(ticketID)
	if err != nil {
		return err
	}
	return checkTransition(action, &t)
}
