package api

import (
	"encoding/json"
	"net/http"

	"github.com/SSTConexionSalud/sistema-turnos/internal/config"
	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/rs/zerolog"
)

// SettingsHandler serves the facility configuration panel
type SettingsHandler struct {
	store  *config.SettingsStore
	logger zerolog.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(store *config.SettingsStore, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, logger: logger}
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Settings())
}

// Put handles PUT /api/settings
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var next types.Settings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	saved, err := h.store.Update(next)
	if err != nil {
		if status := statusFor(err); status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Msg("failed to save settings")
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
