package api

import (
	"net/http"
	"strconv"

	"github.com/SSTConexionSalud/sistema-turnos/internal/clock"
	"github.com/SSTConexionSalud/sistema-turnos/internal/stats"
	"github.com/SSTConexionSalud/sistema-turnos/internal/turnqueue"
)

const defaultTopServices = 5

// StatsHandler serves the statistics panel
type StatsHandler struct {
	mgr   *turnqueue.TurnManager
	clock clock.Clock
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(mgr *turnqueue.TurnManager, c clock.Clock) *StatsHandler {
	return &StatsHandler{mgr: mgr, clock: c}
}

// Get handles GET /api/stats?top=N
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	top := defaultTopServices
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "top must be a non-negative number")
			return
		}
		top = n
	}
	writeJSON(w, http.StatusOK, stats.Build(h.mgr.Tickets(), h.clock.Now(), top))
}
