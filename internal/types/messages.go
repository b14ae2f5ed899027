package types

import "time"

// WebSocket message types pushed to display clients
const (
	MessageTicketCalled = "ticket_called"
	MessageBoard        = "board"
)

// CallNotice is emitted once per successful call so an external notifier
// can announce the ticket (tone, speech, screen flash)
type CallNotice struct {
	Type      string        `json:"type"`
	TicketID  string        `json:"ticketId"`
	Number    int           `json:"number"`
	Counter   int           `json:"counter"`
	Service   string        `json:"service"`
	Priority  PriorityClass `json:"priority"`
	CalledAt  time.Time     `json:"calledAt"`
	Sound     bool          `json:"sound"`
	Voice     bool          `json:"voice"`
	VoiceName string        `json:"voiceName,omitempty"`
	VoiceRate float64       `json:"voiceRate,omitempty"`
	Volume    float64       `json:"volume,omitempty"`
}

// Board is the customer display payload: who is being called and who is next
type Board struct {
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	Current      *Ticket   `json:"current,omitempty"`
	Next         []Ticket  `json:"next"`
	WaitingCount int       `json:"waitingCount"`
	CalledCount  int       `json:"calledCount"`
	ServedToday  int       `json:"servedToday"`
	NextNumber   int       `json:"nextNumber"`
}

// Snapshot is the state handed to the persistence collaborator after
// every committed mutation, and read back on startup
type Snapshot struct {
	Tickets    []Ticket  `json:"tickets" dynamodbav:"Tickets"`
	NextNumber int       `json:"nextNumber" dynamodbav:"NextNumber"`
	SavedAt    time.Time `json:"savedAt" dynamodbav:"SavedAt"`
}
