package turnqueue

import "errors"

// Expected, recoverable conditions surfaced to operators. Callers match
// them with errors.Is; the returned errors carry extra context.
var (
	ErrInvalidServiceType = errors.New("invalid service type")
	ErrInvalidPriority    = errors.New("invalid priority class")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInvalidState       = errors.New("invalid ticket state")
	ErrInvalidCounter     = errors.New("invalid counter")
	ErrInvalidOutcome     = errors.New("invalid outcome")
	ErrQueueEmpty         = errors.New("queue empty")
	ErrNotFound           = errors.New("ticket not found")
)
