package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		status    int
		body      string
		wantLevel string
	}{
		{"ok", http.MethodGet, "/api/tickets", http.StatusOK, "[]", "info"},
		{"created", http.MethodPost, "/api/tickets", http.StatusCreated, `{"number":1}`, "info"},
		{"not found", http.MethodGet, "/api/tickets/x", http.StatusNotFound, "missing", "info"},
		{"server error", http.MethodPost, "/api/counters/1/next", http.StatusInternalServerError, "boom", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			Logger(zerolog.New(&buf))(handler).ServeHTTP(rec, req)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse log entry: %v", err)
			}

			if entry["level"] != tt.wantLevel {
				t.Errorf("expected level %s, got %v", tt.wantLevel, entry["level"])
			}
			if entry["method"] != tt.method {
				t.Errorf("expected method %s, got %v", tt.method, entry["method"])
			}
			if entry["path"] != tt.path {
				t.Errorf("expected path %s, got %v", tt.path, entry["path"])
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("expected status %d, got %v", tt.status, entry["status"])
			}
			if entry["bytes"] != float64(len(tt.body)) {
				t.Errorf("expected %d bytes, got %v", len(tt.body), entry["bytes"])
			}
			if _, ok := entry["duration"]; !ok {
				t.Error("expected duration field")
			}
			if entry["message"] != "request completed" {
				t.Errorf("expected message 'request completed', got %v", entry["message"])
			}
		})
	}
}

func TestLoggerImplicitStatus(t *testing.T) {
	var buf bytes.Buffer
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	Logger(zerolog.New(&buf))(handler).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("expected status 200 when the handler writes nothing, got %v", entry["status"])
	}
}

func TestLoggerRequestID(t *testing.T) {
	var buf bytes.Buffer
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	chain := chimw.RequestID(Logger(zerolog.New(&buf))(handler))
	req := httptest.NewRequest(http.MethodGet, "/api/board", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-42")
	chain.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["request_id"] != "req-42" {
		t.Errorf("expected request_id req-42, got %v", entry["request_id"])
	}
}
