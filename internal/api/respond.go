package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SSTConexionSalud/sistema-turnos/internal/config"
	"github.com/SSTConexionSalud/sistema-turnos/internal/turnqueue"
)

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg}
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, turnqueue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, turnqueue.ErrQueueEmpty),
		errors.Is(err, turnqueue.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, turnqueue.ErrInvalidServiceType),
		errors.Is(err, turnqueue.ErrInvalidPriority),
		errors.Is(err, turnqueue.ErrInvalidCounter),
		errors.Is(err, turnqueue.ErrInvalidOutcome),
		errors.Is(err, turnqueue.ErrInvalidState),
		errors.Is(err, config.ErrInvalidSettings):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with its mapped status. Internal errors are
// not echoed to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
