package storage

import (
	"context"
	"sync"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/metrics"
	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/rs/zerolog"
)

const saveTimeout = 5 * time.Second

// Persister writes snapshots to a Store on a background goroutine. Only
// the most recent pending snapshot is written; older ones are dropped.
type Persister struct {
	store   Store
	backend string
	logger  zerolog.Logger

	mu      sync.Mutex
	pending *types.Snapshot
	latest  time.Time
	wake    chan struct{}
	done    chan struct{}
}

// NewPersister creates a persister for store. backend labels metrics.
func NewPersister(store Store, backend string, logger zerolog.Logger) *Persister {
	return &Persister{
		store:   store,
		backend: backend,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Submit queues snapshot for writing, replacing any unwritten one. A
// snapshot older than one already accepted is dropped. It never blocks.
func (p *Persister) Submit(snapshot types.Snapshot) {
	p.mu.Lock()
	if snapshot.SavedAt.Before(p.latest) {
		p.mu.Unlock()
		p.logger.Warn().
			Time("saved_at", snapshot.SavedAt).
			Time("latest", p.latest).
			Msg("dropping out-of-order snapshot")
		return
	}
	p.latest = snapshot.SavedAt
	p.pending = &snapshot
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run writes submitted snapshots until ctx is cancelled, then flushes
// whatever is still pending
func (p *Persister) Run(ctx context.Context) {
	defer close(p.done)
	p.logger.Info().Str("backend", p.backend).Msg("persister started")

	for {
		select {
		case <-ctx.Done():
			p.flush(context.Background())
			p.logger.Info().Msg("persister stopped")
			return
		case <-p.wake:
			p.flush(ctx)
		}
	}
}

// Done is closed once Run has returned
func (p *Persister) Done() <-chan struct{} {
	return p.done
}

func (p *Persister) flush(parent context.Context) {
	p.mu.Lock()
	snapshot := p.pending
	p.pending = nil
	p.mu.Unlock()

	if snapshot == nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, saveTimeout)
	defer cancel()

	err := p.store.SaveSnapshot(ctx, *snapshot)
	metrics.Get().RecordPersist(p.backend, err)
	if err != nil {
		p.logger.Error().Err(err).
			Int("tickets", len(snapshot.Tickets)).
			Msg("failed to persist snapshot")
		return
	}
	p.logger.Debug().
		Int("tickets", len(snapshot.Tickets)).
		Time("saved_at", snapshot.SavedAt).
		Msg("snapshot persisted")
}
