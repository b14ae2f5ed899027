package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/aggregator"
	"github.com/SSTConexionSalud/sistema-turnos/internal/api"
	"github.com/SSTConexionSalud/sistema-turnos/internal/clock"
	"github.com/SSTConexionSalud/sistema-turnos/internal/config"
	"github.com/SSTConexionSalud/sistema-turnos/internal/metrics"
	"github.com/SSTConexionSalud/sistema-turnos/internal/notify"
	"github.com/SSTConexionSalud/sistema-turnos/internal/storage"
	"github.com/SSTConexionSalud/sistema-turnos/internal/turnqueue"
	"github.com/SSTConexionSalud/sistema-turnos/internal/websocket"
	"github.com/SSTConexionSalud/sistema-turnos/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.ParseFlags(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("failed to parse flags")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store", cfg.StoreBackend).
		Strs("notifiers", cfg.Notifiers).
		Str("log_level", cfg.LogLevel).
		Msg("starting turn management server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings, err := config.LoadSettings(cfg.SettingsFile, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load settings")
	}

	// Create WebSocket hub
	hub := websocket.NewHub(log.Logger)
	go hub.Run(ctx)

	// Persistence
	store, err := storage.NewStore(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()

	mgr := turnqueue.NewTurnManager(settings, log.Logger)

	snapshot, err := store.LoadSnapshot(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		log.Info().Msg("no saved state, starting empty")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to load saved state")
	default:
		if err := mgr.Restore(snapshot); err != nil {
			log.Fatal().Err(err).Msg("failed to restore saved state")
		}
	}

	persister := storage.NewPersister(store, cfg.StoreBackend, log.Logger)
	go persister.Run(ctx)
	mgr.SetSink(persister)

	// Call notifications
	var notifiers notify.Multi
	if cfg.HasNotifier(config.NotifierWebSocket) {
		notifiers = append(notifiers, notify.NewHubNotifier(hub, log.Logger))
	}
	var kafkaNotifier *notify.KafkaNotifier
	if cfg.HasNotifier(config.NotifierKafka) {
		kafkaNotifier = notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic), log.Logger)
		notifiers = append(notifiers, kafkaNotifier)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka notifier enabled")
	}
	mgr.SetNotifier(notifiers)

	// Display board
	board := aggregator.NewAggregator(mgr, hub, cfg.BoardInterval, cfg.BoardSize, log.Logger)
	go board.Start(ctx)

	r := newRouter(cfg, mgr, settings, hub, log.Logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stops the hub, the board and the persister; the persister flushes
	// the last snapshot before Done closes
	cancel()

	select {
	case <-persister.Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("timed out waiting for final snapshot")
	}

	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close kafka writer")
		}
	}

	log.Info().Msg("server stopped")
}

// newRouter wires middleware and every HTTP route
func newRouter(cfg *config.Config, mgr *turnqueue.TurnManager, settings *config.SettingsStore, hub *websocket.Hub, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Metrics)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Get().Handler())
	r.Get("/ws", websocket.NewHandler(hub, cfg, logger).ServeHTTP)

	api.Routes(r,
		api.NewTicketHandler(mgr, cfg.BoardSize, logger),
		api.NewStatsHandler(mgr, clock.Real()),
		api.NewSettingsHandler(settings, logger),
	)
	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"sistema-turnos"}`)
}
