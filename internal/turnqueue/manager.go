package turnqueue

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/clock"
	"github.com/SSTConexionSalud/sistema-turnos/internal/metrics"
	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/rs/zerolog"
)

// SettingsProvider supplies the current facility settings
type SettingsProvider interface {
	Settings() types.Settings
}

// Notifier receives an intent for every ticket called to a counter. It is
// called with the manager locked, in call order, and must not block.
type Notifier interface {
	TicketCalled(ctx context.Context, notice types.CallNotice)
}

// SnapshotSink receives the full state after every committed mutation. It is
// called with the manager locked, so snapshots arrive in commit order, and
// must not block.
type SnapshotSink interface {
	Submit(snapshot types.Snapshot)
}

// TurnManager owns every ticket, the waiting queue and the expiry timers
type TurnManager struct {
	tickets    map[string]*types.Ticket
	order      []string
	queue      *TicketQueue
	current    string
	timers     map[string]*clock.Timer
	nextNumber int

	settings SettingsProvider
	clock    clock.Clock
	notifier Notifier
	sink     SnapshotSink
	mu       sync.Mutex
	logger   zerolog.Logger
}

// NewTurnManager creates an empty manager
func NewTurnManager(settings SettingsProvider, logger zerolog.Logger) *TurnManager {
	return &TurnManager{
		tickets:    make(map[string]*types.Ticket),
		order:      make([]string, 0),
		queue:      NewTicketQueue(),
		timers:     make(map[string]*clock.Timer),
		nextNumber: 1,
		settings:   settings,
		clock:      clock.Real(),
		logger:     logger,
	}
}

// SetClock replaces the time source. Call before any ticket is created.
func (m *TurnManager) SetClock(c clock.Clock) {
	m.clock = c
}

// SetNotifier sets the collaborator told about called tickets
func (m *TurnManager) SetNotifier(n Notifier) {
	m.notifier = n
}

// SetSink sets the persistence collaborator
func (m *TurnManager) SetSink(s SnapshotSink) {
	m.sink = s
}

// CreateTicket issues the next sequence number for service and queues it
func (m *TurnManager) CreateTicket(service string, priority types.PriorityClass) (types.Ticket, error) {
	settings := m.settings.Settings()

	m.mu.Lock()
	t, err := NewTicket(settings, service, priority, m.nextNumber, m.clock.Now())
	if err != nil {
		m.mu.Unlock()
		return types.Ticket{}, err
	}
	if err := m.queue.Enqueue(t); err != nil {
		panic(fmt.Sprintf("turnqueue: new ticket rejected by queue: %v", err))
	}
	m.tickets[t.ID] = t
	m.order = append(m.order, t.ID)
	m.nextNumber++
	out := t.Clone()
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Info().
		Str("ticket_id", out.ID).
		Int("number", out.Number).
		Str("service", out.Service).
		Str("priority", string(out.Priority)).
		Msg("ticket created")

	metrics.Get().RecordTicketCreated(out.Priority)
	return out, nil
}

// CreateQuickTicket issues a normal ticket for the first configured service
func (m *TurnManager) CreateQuickTicket() (types.Ticket, error) {
	settings := m.settings.Settings()
	if len(settings.Services) == 0 {
		return types.Ticket{}, fmt.Errorf("%w: no services configured", ErrInvalidServiceType)
	}
	return m.CreateTicket(settings.Services[0], types.PriorityNormal)
}

// CallNext assigns the highest-ranked waiting ticket to counter
func (m *TurnManager) CallNext(counter int) (types.Ticket, error) {
	settings := m.settings.Settings()
	if counter < 1 || counter > settings.Counters {
		return types.Ticket{}, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidCounter, counter, settings.Counters)
	}

	m.mu.Lock()
	t, ok := m.queue.PeekNext()
	if !ok {
		m.mu.Unlock()
		return types.Ticket{}, ErrQueueEmpty
	}
	m.queue.Remove(t.ID)
	if t.State != types.StateWaiting || t.Counter != 0 {
		panic(fmt.Sprintf("turnqueue: queued ticket %d is %s at counter %d", t.Number, t.State, t.Counter))
	}

	now := m.clock.Now()
	t.State = types.StateCalled
	t.CalledAt = &now
	t.Counter = counter
	m.current = t.ID
	m.armTimerLocked(t, time.Duration(settings.CallTimeoutSeconds)*time.Second)

	out := t.Clone()
	m.publishLocked()
	if m.notifier != nil {
		m.notifier.TicketCalled(context.Background(), types.CallNotice{
			Type:      types.MessageTicketCalled,
			TicketID:  out.ID,
			Number:    out.Number,
			Counter:   out.Counter,
			Service:   out.Service,
			Priority:  out.Priority,
			CalledAt:  now,
			Sound:     settings.SoundEnabled,
			Voice:     settings.VoiceEnabled,
			VoiceName: settings.VoiceName,
			VoiceRate: settings.VoiceRate,
			Volume:    settings.VoiceVolume,
		})
	}
	m.mu.Unlock()

	m.logger.Info().
		Str("ticket_id", out.ID).
		Int("number", out.Number).
		Int("counter", counter).
		Msg("ticket called")

	metrics.Get().RecordTicketCalled()
	return out, nil
}

// MarkServed closes a called ticket as attended
func (m *TurnManager) MarkServed(ticketID string) (types.Ticket, error) {
	return m.resolve(ticketID, ActionServe)
}

// MarkNoShow closes a called ticket whose holder did not show up
func (m *TurnManager) MarkNoShow(ticketID string) (types.Ticket, error) {
	return m.resolve(ticketID, ActionNoShow)
}

func (m *TurnManager) resolve(ticketID string, action Action) (types.Ticket, error) {
	m.mu.Lock()
	t, ok := m.tickets[ticketID]
	if !ok {
		m.mu.Unlock()
		return types.Ticket{}, fmt.Errorf("%w: ticket %s", ErrNotFound, ticketID)
	}
	if err := checkTransition(action, t); err != nil {
		m.mu.Unlock()
		return types.Ticket{}, err
	}

	target, _ := Target(action)
	t.State = target
	if target == types.StateServed {
		now := m.clock.Now()
		t.ServedAt = &now
	}
	m.cancelTimerLocked(t.ID)
	if m.current == t.ID {
		m.current = ""
	}

	out := t.Clone()
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Info().
		Str("ticket_id", out.ID).
		Int("number", out.Number).
		Int("counter", out.Counter).
		Str("state", string(out.State)).
		Msg("ticket resolved")

	metrics.Get().RecordTicketResolved(out.State)
	return out, nil
}

// Recall brings a ticket back to called. A counter of 0 keeps the one
// already assigned. No expiry timer is armed and the ticket never re-enters
// the waiting queue.
func (m *TurnManager) Recall(ticketID string, counter int) (types.Ticket, error) {
	if counter != 0 {
		settings := m.settings.Settings()
		if counter < 0 || counter > settings.Counters {
			return types.Ticket{}, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidCounter, counter, settings.Counters)
		}
	}

	m.mu.Lock()
	t, ok := m.tickets[ticketID]
	if !ok {
		m.mu.Unlock()
		return types.Ticket{}, fmt.Errorf("%w: ticket %s", ErrNotFound, ticketID)
	}
	if err := checkTransition(ActionRecall, t); err != nil {
		m.mu.Unlock()
		return types.Ticket{}, err
	}

	previous := t.State
	t.State = types.StateCalled
	t.ServedAt = nil
	if counter > 0 {
		t.Counter = counter
	}
	if m.current == "" {
		m.current = t.ID
	}

	out := t.Clone()
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Info().
		Str("ticket_id", out.ID).
		Int("number", out.Number).
		Int("counter", out.Counter).
		Str("from", string(previous)).
		Msg("ticket recalled")

	metrics.Get().RecordTicketRecalled()
	return out, nil
}

// Reset stops every timer and drops all tickets. Numbering restarts at 1.
func (m *TurnManager) Reset() int {
	m.mu.Lock()
	for id := range m.timers {
		m.cancelTimerLocked(id)
	}
	count := len(m.tickets)
	m.tickets = make(map[string]*types.Ticket)
	m.order = make([]string, 0)
	m.queue.Wipe()
	m.current = ""
	m.nextNumber = 1
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Warn().Int("count", count).Msg("all tickets wiped")

	metrics.Get().RecordReset()
	return count
}

// Restore replaces the state with a persisted snapshot. Called tickets get
// their remaining timeout; those already past it become no-shows.
func (m *TurnManager) Restore(snapshot types.Snapshot) error {
	settings := m.settings.Settings()
	timeout := time.Duration(settings.CallTimeoutSeconds) * time.Second

	seen := make(map[string]bool, len(snapshot.Tickets))
	for _, t := range snapshot.Tickets {
		if !t.State.Valid() {
			return fmt.Errorf("restore ticket %d: %w: %q", t.Number, ErrInvalidState, t.State)
		}
		if seen[t.ID] {
			return fmt.Errorf("restore ticket %d: duplicate id %s", t.Number, t.ID)
		}
		seen[t.ID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.timers {
		m.cancelTimerLocked(id)
	}
	m.tickets = make(map[string]*types.Ticket, len(snapshot.Tickets))
	m.order = make([]string, 0, len(snapshot.Tickets))
	m.queue.Wipe()
	m.current = ""

	now := m.clock.Now()
	maxNumber := 0
	var latestCall time.Time
	for i := range snapshot.Tickets {
		t := snapshot.Tickets[i].Clone()
		tp := &t
		m.tickets[t.ID] = tp
		m.order = append(m.order, t.ID)
		if t.Number > maxNumber {
			maxNumber = t.Number
		}

		switch t.State {
		case types.StateWaiting:
			tp.Counter = 0
			if err := m.queue.Enqueue(tp); err != nil {
				panic(fmt.Sprintf("turnqueue: restored ticket rejected by queue: %v", err))
			}
		case types.StateCalled:
			if tp.CalledAt == nil {
				called := now
				tp.CalledAt = &called
			}
			remaining := timeout - now.Sub(*tp.CalledAt)
			if timeout > 0 && remaining <= 0 {
				tp.State = types.StateNoShow
				continue
			}
			m.armTimerLocked(tp, remaining)
			if tp.CalledAt.After(latestCall) || m.current == "" {
				latestCall = *tp.CalledAt
				m.current = tp.ID
			}
		}
	}

	m.nextNumber = max(snapshot.NextNumber, maxNumber+1, 1)

	waiting, called := m.countsLocked()
	metrics.Get().UpdateQueueStats(waiting, called)

	m.logger.Info().
		Int("tickets", len(m.tickets)).
		Int("waiting", waiting).
		Int("next_number", m.nextNumber).
		Msg("state restored")
	return nil
}

// expire turns a called ticket into a no-show when its timer fires. A
// handle that is no longer registered for the ticket is ignored. The handle
// is read only under the lock, after armTimerLocked has stored it.
func (m *TurnManager) expire(ticketID string, handle **clock.Timer) {
	m.mu.Lock()
	if registered, ok := m.timers[ticketID]; !ok || registered != *handle {
		m.mu.Unlock()
		return
	}
	delete(m.timers, ticketID)

	t, ok := m.tickets[ticketID]
	if !ok || !CanTransition(ActionExpire, t.State) {
		m.mu.Unlock()
		return
	}
	t.State = types.StateNoShow
	if m.current == ticketID {
		m.current = ""
	}
	out := t.Clone()
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Info().
		Str("ticket_id", out.ID).
		Int("number", out.Number).
		Int("counter", out.Counter).
		Msg("call timed out, ticket marked no-show")

	metrics.Get().RecordTicketExpired()
}

// armTimerLocked starts the expiry timer for a freshly called ticket.
// A non-positive timeout disables expiry.
func (m *TurnManager) armTimerLocked(t *types.Ticket, d time.Duration) {
	if _, exists := m.timers[t.ID]; exists {
		panic(fmt.Sprintf("turnqueue: ticket %d already has a pending timer", t.Number))
	}
	if d <= 0 {
		m.logger.Warn().Int("number", t.Number).Msg("call timeout disabled, ticket will not expire")
		return
	}
	id := t.ID
	var handle *clock.Timer
	handle = m.clock.AfterFunc(d, func() {
		m.expire(id, &handle)
	})
	m.timers[id] = handle
}

func (m *TurnManager) cancelTimerLocked(ticketID string) {
	if timer, ok := m.timers[ticketID]; ok {
		timer.Stop()
		delete(m.timers, ticketID)
	}
}

// publishLocked hands the committed state to the sink and the gauges
// before the lock is released, so they observe mutations in order
func (m *TurnManager) publishLocked() {
	waiting, called := m.countsLocked()
	metrics.Get().UpdateQueueStats(waiting, called)
	if m.sink != nil {
		m.sink.Submit(m.snapshotLocked())
	}
}

func (m *TurnManager) countsLocked() (waiting, called int) {
	for _, t := range m.tickets {
		if t.State == types.StateCalled {
			called++
		}
	}
	return m.queue.Len(), called
}

func (m *TurnManager) snapshotLocked() types.Snapshot {
	return types.Snapshot{
		Tickets:    m.historyLocked(),
		NextNumber: m.nextNumber,
		SavedAt:    m.clock.Now(),
	}
}

func (m *TurnManager) historyLocked() []types.Ticket {
	out := make([]types.Ticket, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tickets[id].Clone())
	}
	return out
}

// Snapshot returns the full state in persistable form
func (m *TurnManager) Snapshot() types.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Get returns a copy of one ticket
func (m *TurnManager) Get(ticketID string) (types.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[ticketID]
	if !ok {
		return types.Ticket{}, fmt.Errorf("%w: ticket %s", ErrNotFound, ticketID)
	}
	return t.Clone(), nil
}

// Tickets returns every ticket in creation order
func (m *TurnManager) Tickets() []types.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyLocked()
}

// Waiting returns the waiting tickets in call order
func (m *TurnManager) Waiting() []types.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Snapshot()
}

// Called returns the tickets currently in called state, most recent call first
func (m *TurnManager) Called() []types.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Ticket, 0)
	for _, id := range m.order {
		t := m.tickets[id]
		if t.State == types.StateCalled {
			out = append(out, t.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b types.Ticket) int {
		return b.CalledAt.Compare(*a.CalledAt)
	})
	return out
}

// Current returns the ticket shown as the current call, if any
func (m *TurnManager) Current() (types.Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == "" {
		return types.Ticket{}, false
	}
	return m.tickets[m.current].Clone(), true
}

// NextNumber returns the number the next ticket will get
func (m *TurnManager) NextNumber() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextNumber
}

// Board builds the display board: current call plus the first limit
// waiting tickets
func (m *TurnManager) Board(limit int) types.Board {
	if limit < 0 {
		limit = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	board := types.Board{
		Type:       types.MessageBoard,
		Timestamp:  m.clock.Now(),
		NextNumber: m.nextNumber,
		Next:       make([]types.Ticket, 0, min(limit, m.queue.Len())),
	}
	if m.current != "" {
		cur := m.tickets[m.current].Clone()
		board.Current = &cur
	}
	for i, t := range m.queue.Snapshot() {
		if i >= limit {
			break
		}
		board.Next = append(board.Next, t)
	}
	board.WaitingCount, board.CalledCount = m.countsLocked()
	return board
}
