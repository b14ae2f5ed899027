// Package stats derives operational figures from ticket history. Every
// function is pure over the slice it receives.
package stats

import (
	"math"
	"slices"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
)

// Window is a half-open time range [From, To). A zero To leaves it open.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to,omitempty"`
}

// Today returns the window starting at local midnight of now
func Today(now time.Time) Window {
	y, m, d := now.Date()
	return Window{From: time.Date(y, m, d, 0, 0, 0, 0, now.Location())}
}

// Contains reports whether at falls inside the window
func (w Window) Contains(at time.Time) bool {
	if at.Before(w.From) {
		return false
	}
	return w.To.IsZero() || at.Before(w.To)
}

// InWindow returns the tickets created inside w
func InWindow(tickets []types.Ticket, w Window) []types.Ticket {
	out := make([]types.Ticket, 0)
	for _, t := range tickets {
		if w.Contains(t.CreatedAt) {
			out = append(out, t)
		}
	}
	return out
}

// CountByState tallies tickets per lifecycle state
func CountByState(tickets []types.Ticket) map[types.TicketState]int {
	counts := map[types.TicketState]int{
		types.StateWaiting: 0,
		types.StateCalled:  0,
		types.StateServed:  0,
		types.StateNoShow:  0,
	}
	for _, t := range tickets {
		counts[t.State]++
	}
	return counts
}

// Efficiency is the share of tickets created in w that ended served.
// Returns 0 when no ticket was created in w.
func Efficiency(tickets []types.Ticket, w Window) float64 {
	created := InWindow(tickets, w)
	if len(created) == 0 {
		return 0
	}
	served := 0
	for _, t := range created {
		if t.State == types.StateServed {
			served++
		}
	}
	return float64(served) / float64(len(created))
}

// EfficiencyPercent is Efficiency as a whole percentage
func EfficiencyPercent(tickets []types.Ticket, w Window) int {
	return int(math.Round(Efficiency(tickets, w) * 100))
}

// AverageHandling is the mean time from call to service over served
// tickets carrying both timestamps. Returns 0 when there are none.
func AverageHandling(tickets []types.Ticket) time.Duration {
	var total time.Duration
	n := 0
	for _, t := range tickets {
		if t.State != types.StateServed {
			continue
		}
		d, ok := t.HandlingTime()
		if !ok {
			continue
		}
		total += d
		n++
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// Minutes converts d to minutes rounded to one decimal
func Minutes(d time.Duration) float64 {
	return math.Round(d.Minutes()*10) / 10
}

// ServiceCount is the number of tickets issued for one service type
type ServiceCount struct {
	Service string `json:"service"`
	Count   int    `json:"count"`
}

// TopServices returns the n most requested services, busiest first. Ties
// keep the order in which the services first appear. n <= 0 returns all.
func TopServices(tickets []types.Ticket, n int) []ServiceCount {
	index := make(map[string]int)
	counts := make([]ServiceCount, 0)
	for _, t := range tickets {
		i, ok := index[t.Service]
		if !ok {
			i = len(counts)
			index[t.Service] = i
			counts = append(counts, ServiceCount{Service: t.Service})
		}
		counts[i].Count++
	}

	slices.SortStableFunc(counts, func(a, b ServiceCount) int {
		return b.Count - a.Count
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// ServedHistory returns the tickets served inside w, most recent first
func ServedHistory(tickets []types.Ticket, w Window) []types.Ticket {
	out := make([]types.Ticket, 0)
	for _, t := range tickets {
		if t.State == types.StateServed && t.ServedAt != nil && w.Contains(*t.ServedAt) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b types.Ticket) int {
		return b.ServedAt.Compare(*a.ServedAt)
	})
	return out
}
