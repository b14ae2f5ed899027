package aggregator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/clock"
	"github.com/SSTConexionSalud/sistema-turnos/internal/metrics"
	"github.com/SSTConexionSalud/sistema-turnos/internal/stats"
	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/rs/zerolog"
)

// BoardSource supplies the live queue state
type BoardSource interface {
	Board(limit int) types.Board
	Tickets() []types.Ticket
}

// Broadcaster reaches every connected display
type Broadcaster interface {
	Broadcast(message []byte)
}

// Aggregator periodically pushes the display board to the displays
type Aggregator struct {
	source   BoardSource
	hub      Broadcaster
	clock    clock.Clock
	interval time.Duration
	size     int
	logger   zerolog.Logger
}

// NewAggregator creates a new aggregator publishing the first size waiting
// tickets every interval
func NewAggregator(source BoardSource, hub Broadcaster, interval time.Duration, size int, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		source:   source,
		hub:      hub,
		clock:    clock.Real(),
		interval: interval,
		size:     size,
		logger:   logger,
	}
}

// SetClock replaces the time source
func (a *Aggregator) SetClock(c clock.Clock) {
	a.clock = c
}

// Start broadcasts the board on every tick until ctx is cancelled
func (a *Aggregator) Start(ctx context.Context) {
	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info().Dur("interval", a.interval).Int("size", a.size).Msg("aggregator started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("aggregator stopped")
			return

		case <-ticker.C:
			cycleStart := a.clock.Now()
			if err := a.Publish(); err != nil {
				a.logger.Error().Err(err).Msg("failed to publish board")
				continue
			}
			metrics.Get().RecordBoardCycle(a.clock.Now().Sub(cycleStart))
		}
	}
}

// Publish builds the current board and broadcasts it once
func (a *Aggregator) Publish() error {
	board := a.source.Board(a.size)
	today := stats.InWindow(a.source.Tickets(), stats.Today(board.Timestamp))
	board.ServedToday = stats.CountByState(today)[types.StateServed]

	data, err := json.Marshal(board)
	if err != nil {
		return err
	}
	a.hub.Broadcast(data)

	a.logger.Debug().
		Int("waiting", board.WaitingCount).
		Int("called", board.CalledCount).
		Msg("board broadcast")
	return nil
}
