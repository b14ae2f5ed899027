package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/SSTConexionSalud/sistema-turnos/internal/turnqueue"
	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxBoardLimit bounds the waiting tickets returned by GET /api/board
const maxBoardLimit = 100

// TicketHandler serves the operator and kiosk ticket endpoints
type TicketHandler struct {
	mgr       *turnqueue.TurnManager
	ctrl      *turnqueue.Controller
	boardSize int
	logger    zerolog.Logger
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(mgr *turnqueue.TurnManager, boardSize int, logger zerolog.Logger) *TicketHandler {
	return &TicketHandler{
		mgr:       mgr,
		ctrl:      turnqueue.NewController(mgr),
		boardSize: boardSize,
		logger:    logger.With().Str("component", "tickets_api").Logger(),
	}
}

// createRequest is the JSON body for POST /api/tickets
type createRequest struct {
	Service  string              `json:"service"`
	Priority types.PriorityClass `json:"priority"`
}

// resolveRequest is the JSON body for POST /api/tickets/{id}/resolve
type resolveRequest struct {
	Outcome turnqueue.Outcome `json:"outcome"`
}

// recallRequest is the optional JSON body for POST /api/tickets/{id}/recall
type recallRequest struct {
	Counter int `json:"counter,omitempty"`
}

// Create handles POST /api/tickets
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Priority == "" {
		req.Priority = types.PriorityNormal
	}

	t, err := h.mgr.CreateTicket(req.Service, req.Priority)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// CreateQuick handles POST /api/tickets/quick
func (h *TicketHandler) CreateQuick(w http.ResponseWriter, r *http.Request) {
	t, err := h.mgr.CreateQuickTicket()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// List handles GET /api/tickets
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Tickets())
}

// Waiting handles GET /api/tickets/waiting
func (h *TicketHandler) Waiting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Waiting())
}

// Called handles GET /api/tickets/called
func (h *TicketHandler) Called(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Called())
}

// Get handles GET /api/tickets/{id}
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.mgr.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CallNext handles POST /api/counters/{counter}/next
func (h *TicketHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	counter, err := strconv.Atoi(chi.URLParam(r, "counter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "counter must be a number")
		return
	}

	t, err := h.mgr.CallNext(counter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Resolve handles POST /api/tickets/{id}/resolve
func (h *TicketHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.resolve(w, chi.URLParam(r, "id"), req.Outcome)
}

// Serve handles POST /api/tickets/{id}/serve
func (h *TicketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, chi.URLParam(r, "id"), turnqueue.OutcomeServed)
}

// NoShow handles POST /api/tickets/{id}/no-show
func (h *TicketHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, chi.URLParam(r, "id"), turnqueue.OutcomeNoShow)
}

func (h *TicketHandler) resolve(w http.ResponseWriter, id string, outcome turnqueue.Outcome) {
	t, err := h.ctrl.Resolve(id, outcome)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Recall handles POST /api/tickets/{id}/recall. The body is optional.
func (h *TicketHandler) Recall(w http.ResponseWriter, r *http.Request) {
	var req recallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	t, err := h.ctrl.Recall(chi.URLParam(r, "id"), req.Counter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Current handles GET /api/current
func (h *TicketHandler) Current(w http.ResponseWriter, r *http.Request) {
	t, ok := h.mgr.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Board handles GET /api/board?limit=N. Limits above maxBoardLimit are
// clamped.
func (h *TicketHandler) Board(w http.ResponseWriter, r *http.Request) {
	limit := h.boardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative number")
			return
		}
		limit = min(n, maxBoardLimit)
	}
	writeJSON(w, http.StatusOK, h.mgr.Board(limit))
}

// Reset handles DELETE /api/tickets
func (h *TicketHandler) Reset(w http.ResponseWriter, r *http.Request) {
	cleared := h.mgr.Reset()

	h.logger.Info().Int("cleared", cleared).Msg("all tickets wiped via API")

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "all tickets wiped",
		"cleared": cleared,
	})
}
