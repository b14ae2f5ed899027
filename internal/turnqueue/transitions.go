package turnqueue

import (
	"fmt"
	"slices"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
)

// Action is an operation that moves a ticket between states
type Action string

const (
	ActionCall   Action = "call"
	ActionServe  Action = "serve"
	ActionNoShow Action = "no_show"
	ActionRecall Action = "recall"
	ActionExpire Action = "expire"
)

// transitionMap lists the source states each action accepts
var transitionMap = map[Action][]types.TicketState{
	ActionCall:   {types.StateWaiting},
	ActionServe:  {types.StateCalled},
	ActionNoShow: {types.StateCalled},
	ActionRecall: {types.StateCalled, types.StateServed, types.StateNoShow},
	ActionExpire: {types.StateCalled},
}

// actionTargets is the state a ticket ends in after each action
var actionTargets = map[Action]types.TicketState{
	ActionCall:   types.StateCalled,
	ActionServe:  types.StateServed,
	ActionNoShow: types.StateNoShow,
	ActionRecall: types.StateCalled,
	ActionExpire: types.StateNoShow,
}

// CanTransition reports whether action is legal from the given state
func CanTransition(action Action, from types.TicketState) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	return slices.Contains(allowed, from)
}

// Target returns the resulting state of action
func Target(action Action) (types.TicketState, bool) {
	s, ok := actionTargets[action]
	return s, ok
}

// checkTransition returns a wrapped ErrInvalidTransition when action is
// not allowed for t
func checkTransition(action Action, t *types.Ticket) error {
	if CanTransition(action, t.State) {
		return nil
	}
	return fmt.Errorf("%w: cannot %s ticket %d in state %s", ErrInvalidTransition, action, t.Number, t.State)
}
