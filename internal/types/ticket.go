package types

import "time"

// TicketState represents the lifecycle state of a ticket
type TicketState string

const (
	StateWaiting TicketState = "waiting" // In queue, not yet called
	StateCalled  TicketState = "called"  // Called to a counter, awaiting the client
	StateServed  TicketState = "served"  // Attended at the counter
	StateNoShow  TicketState = "no_show" // Client did not show up (manual or expired)
)

// Valid reports whether s is a known ticket state
func (s TicketState) Valid() bool {
	switch s {
	case StateWaiting, StateCalled, StateServed, StateNoShow:
		return true
	}
	return false
}

// PriorityClass determines the call order of waiting tickets
type PriorityClass string

const (
	PriorityUrgent       PriorityClass = "urgent"
	PriorityPreferential PriorityClass = "preferential"
	PriorityNormal       PriorityClass = "normal"
)

// AllPriorities lists the priority classes from highest to lowest
var AllPriorities = []PriorityClass{
	PriorityUrgent,
	PriorityPreferential,
	PriorityNormal,
}

// Valid reports whether p is a known priority class
func (p PriorityClass) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityPreferential, PriorityNormal:
		return true
	}
	return false
}

// Ticket is a single service request ("turn") issued at the facility
type Ticket struct {
	ID        string        `json:"id" dynamodbav:"ID"`
	Number    int           `json:"number" dynamodbav:"Number"` // sequence number shown to the client
	Service   string        `json:"service" dynamodbav:"Service"`
	Priority  PriorityClass `json:"priority" dynamodbav:"Priority"`
	State     TicketState   `json:"state" dynamodbav:"State"`
	CreatedAt time.Time     `json:"createdAt" dynamodbav:"CreatedAt"`
	CalledAt  *time.Time    `json:"calledAt,omitempty" dynamodbav:"CalledAt,omitempty"`
	ServedAt  *time.Time    `json:"servedAt,omitempty" dynamodbav:"ServedAt,omitempty"`
	Counter   int           `json:"counter,omitempty" dynamodbav:"Counter,omitempty"` // 0 while waiting
}

// Clone returns a deep copy of the ticket so callers never share the
// manager's timestamp pointers
func (t Ticket) Clone() Ticket {
	out := t
	if t.CalledAt != nil {
		at := *t.CalledAt
		out.CalledAt = &at
	}
	if t.ServedAt != nil {
		at := *t.ServedAt
		out.ServedAt = &at
	}
	return out
}

// HandlingTime returns the time between call and service, and whether
// both timestamps are present
func (t Ticket) HandlingTime() (time.Duration, bool) {
	if t.CalledAt == nil || t.ServedAt == nil {
		return 0, false
	}
	return t.ServedAt.Sub(*t.CalledAt), true
}
