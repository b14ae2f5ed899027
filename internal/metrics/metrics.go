package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Ticket lifecycle
	ticketsCreated  *prometheus.CounterVec
	ticketsCalled   prometheus.Counter
	ticketsResolved *prometheus.CounterVec
	ticketsExpired  prometheus.Counter
	ticketsRecalled prometheus.Counter
	resets          prometheus.Counter
	waiting         prometheus.Gauge
	called          prometheus.Gauge

	// Collaborators
	persistFailures *prometheus.CounterVec
	persistWrites   *prometheus.CounterVec
	notifyFailures  *prometheus.CounterVec

	// WebSocket
	wsClients  prometheus.Gauge
	wsMessages prometheus.Counter

	// Board broadcasts
	boardCycles   prometheus.Counter
	boardDuration prometheus.Gauge

	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics(prometheus.DefaultRegisterer)
	})
	return instance
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ticketsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "turnos_tickets_created_total",
			Help: "Tickets issued, by priority class",
		}, []string{"priority"}),
		ticketsCalled: f.NewCounter(prometheus.CounterOpts{
			Name: "turnos_tickets_called_total",
			Help: "Tickets called to a counter",
		}),
		ticketsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "turnos_tickets_resolved_total",
			Help: "Called tickets resolved by an operator, by outcome",
		}, []string{"outcome"}),
		ticketsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "turnos_tickets_expired_total",
			Help: "Called tickets turned into no-shows by the call timeout",
		}),
		ticketsRecalled: f.NewCounter(prometheus.CounterOpts{
			Name: "turnos_tickets_recalled_total",
			Help: "Tickets brought back to called",
		}),
		resets: f.NewCounter(prometheus.CounterOpts{
			Name: "turnos_resets_total",
			Help: "Full system resets",
		}),
		waiting: f.NewGauge(prometheus.GaugeOpts{
			Name: "turnos_tickets_waiting",
			Help: "Tickets currently waiting",
		}),
		called: f.NewGauge(prometheus.GaugeOpts{
			Name: "turnos_tickets_called",
			Help: "Tickets currently in called state",
		}),
		persistFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "turnos_persist_failures_total",
			Help: "Snapshot writes that failed, by backend",
		}, []string{"backend"}),
		persistWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "turnos_persist_writes_total",
			Help: "Snapshot writes that succeeded, by backend",
		}, []string{"backend"}),
		notifyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "turnos_notify_failures_total",
			Help: "Call notifications that could not be delivered, by notifier",
		}, []string{"notifier"}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "turnos_websocket_active_connections",
			Help: "Connected display clients",
		}),
		wsMessages: f.NewCounter(prometheus.CounterOpts{
			Name: "turnos_websocket_messages_total",
			Help: "Messages broadcast to display clients",
		}),
		boardCycles: f.NewCounter(prometheus.CounterOpts{
			Name: "turnos_board_cycles_total",
			Help: "Display board broadcast cycles",
		}),
		boardDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "turnos_board_duration_seconds",
			Help: "Duration of the last board broadcast cycle",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "turnos_http_requests_total",
			Help: "HTTP requests, by route and status",
		}, []string{"route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "turnos_http_request_duration_seconds",
			Help:    "HTTP request latency, by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordTicketCreated increments the issued tickets counter
func (m *Metrics) RecordTicketCreated(priority types.PriorityClass) {
	m.ticketsCreated.WithLabelValues(string(priority)).Inc()
}

// RecordTicketCalled increments the calls counter
func (m *Metrics) RecordTicketCalled() {
	m.ticketsCalled.Inc()
}

// RecordTicketResolved increments the resolution counter for the final state
func (m *Metrics) RecordTicketResolved(state types.TicketState) {
	m.ticketsResolved.WithLabelValues(string(state)).Inc()
}

// RecordTicketExpired increments the expiry counter
func (m *Metrics) RecordTicketExpired() {
	m.ticketsExpired.Inc()
}

// RecordTicketRecalled increments the recall counter
func (m *Metrics) RecordTicketRecalled() {
	m.ticketsRecalled.Inc()
}

// RecordReset increments the reset counter
func (m *Metrics) RecordReset() {
	m.resets.Inc()
}

// UpdateQueueStats sets the waiting and called gauges
func (m *Metrics) UpdateQueueStats(waiting, called int) {
	m.waiting.Set(float64(waiting))
	m.called.Set(float64(called))
}

// RecordPersist records the result of a snapshot write
func (m *Metrics) RecordPersist(backend string, err error) {
	if err != nil {
		m.persistFailures.WithLabelValues(backend).Inc()
		return
	}
	m.persistWrites.WithLabelValues(backend).Inc()
}

// RecordNotifyFailure increments the failed notification counter
func (m *Metrics) RecordNotifyFailure(notifier string) {
	m.notifyFailures.WithLabelValues(notifier).Inc()
}

// RecordWebSocketConnect increments the active display clients gauge
func (m *Metrics) RecordWebSocketConnect() {
	m.wsClients.Inc()
}

// RecordWebSocketDisconnect decrements the active display clients gauge
func (m *Metrics) RecordWebSocketDisconnect() {
	m.wsClients.Dec()
}

// RecordWebSocketMessage increments the broadcast counter
func (m *Metrics) RecordWebSocketMessage() {
	m.wsMessages.Inc()
}

// RecordBoardCycle records a display board broadcast cycle
func (m *Metrics) RecordBoardCycle(duration time.Duration) {
	m.boardCycles.Inc()
	m.boardDuration.Set(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
