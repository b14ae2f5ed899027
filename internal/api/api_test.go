package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/clock"
	"github.com/SSTConexionSalud/sistema-turnos/internal/config"
	"github.com/SSTConexionSalud/sistema-turnos/internal/stats"
	"github.com/SSTConexionSalud/sistema-turnos/internal/turnqueue"
	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.Local)

type testServer struct {
	router http.Handler
	mgr    *turnqueue.TurnManager
	clock  *clock.FakeClock
	store  *config.SettingsStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	store, err := config.LoadSettings("", logger)
	require.NoError(t, err)
	s := types.DefaultSettings()
	s.Services = []string{"Laboratorio", "Rayos X"}
	s.Counters = 3
	s.CallTimeoutSeconds = 60
	_, err = store.Update(s)
	require.NoError(t, err)

	fc := clock.Fake(testStart)
	mgr := turnqueue.NewTurnManager(store, logger)
	mgr.SetClock(fc)

	r := chi.NewRouter()
	Routes(r,
		NewTicketHandler(mgr, 5, logger),
		NewStatsHandler(mgr, fc),
		NewSettingsHandler(store, logger),
	)
	return &testServer{router: r, mgr: mgr, clock: fc, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateTicket(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/tickets", `{"service":"Rayos X","priority":"urgent"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	ticket := decode[types.Ticket](t, w)
	assert.Equal(t, 1, ticket.Number)
	assert.Equal(t, "Rayos X", ticket.Service)
	assert.Equal(t, types.PriorityUrgent, ticket.Priority)
	assert.Equal(t, types.StateWaiting, ticket.State)
}

func TestCreateTicketDefaultsToNormal(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/tickets", `{"service":"Laboratorio"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, types.PriorityNormal, decode[types.Ticket](t, w).Priority)
}

func TestCreateTicketErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"service":`},
		{"unknown service", `{"service":"Cardiologia","priority":"normal"}`},
		{"unknown priority", `{"service":"Laboratorio","priority":"vip"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			w := srv.do(t, http.MethodPost, "/api/tickets", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[map[string]string](t, w), "error")
			assert.Empty(t, srv.mgr.Tickets())
		})
	}
}

func TestCreateQuickTicket(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/tickets/quick", "")
	require.Equal(t, http.StatusCreated, w.Code)

	ticket := decode[types.Ticket](t, w)
	assert.Equal(t, "Laboratorio", ticket.Service)
	assert.Equal(t, types.PriorityNormal, ticket.Priority)
}

func TestCallNextFlow(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/tickets", `{"service":"Laboratorio","priority":"normal"}`)
	srv.do(t, http.MethodPost, "/api/tickets", `{"service":"Laboratorio","priority":"preferential"}`)

	w := srv.do(t, http.MethodPost, "/api/counters/2/next", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	called := decode[types.Ticket](t, w)
	assert.Equal(t, 2, called.Number)
	assert.Equal(t, types.StateCalled, called.State)
	assert.Equal(t, 2, called.Counter)

	w = srv.do(t, http.MethodGet, "/api/current", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, called.ID, decode[types.Ticket](t, w).ID)

	w = srv.do(t, http.MethodGet, "/api/tickets/waiting", "")
	waiting := decode[[]types.Ticket](t, w)
	require.Len(t, waiting, 1)
	assert.Equal(t, 1, waiting[0].Number)

	w = srv.do(t, http.MethodGet, "/api/tickets/called", "")
	assert.Len(t, decode[[]types.Ticket](t, w), 1)
}

func TestCallNextErrors(t *testing.T) {
	tests := []struct {
		name    string
		counter string
		want    int
	}{
		{"empty queue", "1", http.StatusConflict},
		{"counter out of range", "9", http.StatusBadRequest},
		{"counter zero", "0", http.StatusBadRequest},
		{"counter not a number", "abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			w := srv.do(t, http.MethodPost, "/api/counters/"+tt.counter+"/next", "")
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCurrentNoContent(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/current", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestResolveOutcomes(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want types.TicketState
	}{
		{"resolve served", "/resolve", `{"outcome":"served"}`, types.StateServed},
		{"resolve no show", "/resolve", `{"outcome":"no_show"}`, types.StateNoShow},
		{"serve shortcut", "/serve", "", types.StateServed},
		{"no-show shortcut", "/no-show", "", types.StateNoShow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			created, err := srv.mgr.CreateTicket("Laboratorio", types.PriorityNormal)
			require.NoError(t, err)
			_, err = srv.mgr.CallNext(1)
			require.NoError(t, err)

			w := srv.do(t, http.MethodPost, "/api/tickets/"+created.ID+tt.path, tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[types.Ticket](t, w).State)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	srv := newTestServer(t)
	waiting, err := srv.mgr.CreateTicket("Laboratorio", types.PriorityNormal)
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown ticket", "/api/tickets/missing/serve", "", http.StatusNotFound},
		{"waiting ticket cannot be served", "/api/tickets/" + waiting.ID + "/serve", "", http.StatusConflict},
		{"unknown outcome", "/api/tickets/" + waiting.ID + "/resolve", `{"outcome":"lost"}`, http.StatusBadRequest},
		{"malformed body", "/api/tickets/" + waiting.ID + "/resolve", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	got, err := srv.mgr.Get(waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StateWaiting, got.State)
}

func TestRecall(t *testing.T) {
	srv := newTestServer(t)
	created, err := srv.mgr.CreateTicket("Laboratorio", types.PriorityNormal)
	require.NoError(t, err)
	_, err = srv.mgr.CallNext(1)
	require.NoError(t, err)
	_, err = srv.mgr.MarkNoShow(created.ID)
	require.NoError(t, err)

	w := srv.do(t, http.MethodPost, "/api/tickets/"+created.ID+"/recall", `{"counter":3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	recalled := decode[types.Ticket](t, w)
	assert.Equal(t, types.StateCalled, recalled.State)
	assert.Equal(t, 3, recalled.Counter)
	assert.Nil(t, recalled.ServedAt)
}

func TestRecallWithoutBody(t *testing.T) {
	srv := newTestServer(t)
	created, err := srv.mgr.CreateTicket("Laboratorio", types.PriorityNormal)
	require.NoError(t, err)
	_, err = srv.mgr.CallNext(2)
	require.NoError(t, err)
	_, err = srv.mgr.MarkServed(created.ID)
	require.NoError(t, err)

	w := srv.do(t, http.MethodPost, "/api/tickets/"+created.ID+"/recall", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[types.Ticket](t, w).Counter)
}

func TestRecallWaitingTicketConflicts(t *testing.T) {
	srv := newTestServer(t)
	created, err := srv.mgr.CreateTicket("Laboratorio", types.PriorityNormal)
	require.NoError(t, err)

	w := srv.do(t, http.MethodPost, "/api/tickets/"+created.ID+"/recall", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetTicket(t *testing.T) {
	srv := newTestServer(t)
	created, err := srv.mgr.CreateTicket("Rayos X", types.PriorityPreferential)
	require.NoError(t, err)

	w := srv.do(t, http.MethodGet, "/api/tickets/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[types.Ticket](t, w).ID)

	w = srv.do(t, http.MethodGet, "/api/tickets/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBoard(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 8; i++ {
		_, err := srv.mgr.CreateTicket("Laboratorio", types.PriorityNormal)
		require.NoError(t, err)
	}
	_, err := srv.mgr.CallNext(1)
	require.NoError(t, err)

	w := srv.do(t, http.MethodGet, "/api/board", "")
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[types.Board](t, w)
	require.NotNil(t, board.Current)
	assert.Equal(t, 1, board.Current.Number)
	assert.Len(t, board.Next, 5)
	assert.Equal(t, 7, board.WaitingCount)

	w = srv.do(t, http.MethodGet, "/api/board?limit=2", "")
	assert.Len(t, decode[types.Board](t, w).Next, 2)

	w = srv.do(t, http.MethodGet, "/api/board?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoardClampsLargeLimit(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < maxBoardLimit+5; i++ {
		_, err := srv.mgr.CreateTicket("Laboratorio", types.PriorityNormal)
		require.NoError(t, err)
	}

	for _, limit := range []string{"1000", "100000000", "4611686018427387904"} {
		w := srv.do(t, http.MethodGet, "/api/board?limit="+limit, "")
		require.Equal(t, http.StatusOK, w.Code, limit)
		board := decode[types.Board](t, w)
		assert.Len(t, board.Next, maxBoardLimit)
		assert.Equal(t, maxBoardLimit+5, board.WaitingCount)
	}
}

func TestReset(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 3; i++ {
		_, err := srv.mgr.CreateTicket("Laboratorio", types.PriorityNormal)
		require.NoError(t, err)
	}

	w := srv.do(t, http.MethodDelete, "/api/tickets", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message string `json:"message"`
		Cleared int    `json:"cleared"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Cleared)

	w = srv.do(t, http.MethodGet, "/api/tickets", "")
	assert.Empty(t, decode[[]types.Ticket](t, w))
}

func TestStats(t *testing.T) {
	srv := newTestServer(t)
	for _, service := range []string{"Laboratorio", "Laboratorio", "Rayos X"} {
		_, err := srv.mgr.CreateTicket(service, types.PriorityNormal)
		require.NoError(t, err)
	}
	called, err := srv.mgr.CallNext(1)
	require.NoError(t, err)
	srv.clock.Advance(30 * time.Second)
	_, err = srv.mgr.MarkServed(called.ID)
	require.NoError(t, err)

	w := srv.do(t, http.MethodGet, "/api/stats?top=1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode[stats.Report](t, w)
	assert.Equal(t, 3, report.CreatedToday)
	assert.Equal(t, 1, report.ServedToday)
	assert.Equal(t, 33, report.EfficiencyPercent)
	assert.Equal(t, 30*time.Second, report.AverageHandling)
	require.Len(t, report.TopServices, 1)
	assert.Equal(t, "Laboratorio", report.TopServices[0].Service)

	w = srv.do(t, http.MethodGet, "/api/stats?top=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettings(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[types.Settings](t, w).Counters)

	body := `{"services":[" Farmacia ","Laboratorio"],"counters":5,"callTimeoutSeconds":120,"voiceRate":1,"voiceVolume":0.5}`
	w = srv.do(t, http.MethodPut, "/api/settings", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode[types.Settings](t, w)
	assert.Equal(t, []string{"Farmacia", "Laboratorio"}, saved.Services)
	assert.Equal(t, 5, srv.store.Settings().Counters)

	// new services are usable right away
	w = srv.do(t, http.MethodPost, "/api/tickets", `{"service":"Farmacia"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSettingsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"services":`},
		{"no services", `{"services":[],"counters":1,"callTimeoutSeconds":10,"voiceRate":1,"voiceVolume":1}`},
		{"zero counters", `{"services":["A"],"counters":0,"callTimeoutSeconds":10,"voiceRate":1,"voiceVolume":1}`},
		{"duplicate services", `{"services":["A","A"],"counters":1,"callTimeoutSeconds":10,"voiceRate":1,"voiceVolume":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			w := srv.do(t, http.MethodPut, "/api/settings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, 3, srv.store.Settings().Counters)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{turnqueue.ErrNotFound, http.StatusNotFound},
		{turnqueue.ErrQueueEmpty, http.StatusConflict},
		{turnqueue.ErrInvalidTransition, http.StatusConflict},
		{turnqueue.ErrInvalidCounter, http.StatusBadRequest},
		{config.ErrInvalidSettings, http.StatusBadRequest},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
