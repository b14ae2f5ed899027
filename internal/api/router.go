package api

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the operator API under r
func Routes(r chi.Router, tickets *TicketHandler, stats *StatsHandler, settings *SettingsHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", tickets.List)
			r.Post("/", tickets.Create)
			r.Delete("/", tickets.Reset)
			r.Post("/quick", tickets.CreateQuick)
			r.Get("/waiting", tickets.Waiting)
			r.Get("/called", tickets.Called)
			r.Get("/{id}", tickets.Get)
			r.Post("/{id}/resolve", tickets.Resolve)
			r.Post("/{id}/serve", tickets.Serve)
			r.Post("/{id}/no-show", tickets.NoShow)
			r.Post("/{id}/recall", tickets.Recall)
		})
		r.Post("/counters/{counter}/next", tickets.CallNext)
		r.Get("/current", tickets.Current)
		r.Get("/board", tickets.Board)
		r.Get("/stats", stats.Get)
		r.Get("/settings", settings.Get)
		r.Put("/settings", settings.Put)
	})
}
