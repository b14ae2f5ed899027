package stats

import (
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
)

// Report is the statistics panel payload
type Report struct {
	GeneratedAt       time.Time      `json:"generatedAt"`
	Window            Window         `json:"window"`
	CreatedToday      int            `json:"createdToday"`
	ServedToday       int            `json:"servedToday"`
	NoShowToday       int            `json:"noShowToday"`
	Waiting           int            `json:"waiting"`
	Called            int            `json:"called"`
	Efficiency        float64        `json:"efficiency"`
	EfficiencyPercent int            `json:"efficiencyPercent"`
	AverageHandling   time.Duration  `json:"averageHandlingNs"`
	AverageMinutes    float64        `json:"averageMinutes"`
	TopServices       []ServiceCount `json:"topServices"`
	ServedHistory     []types.Ticket `json:"servedHistory"`
}

// Build computes the report for the day containing now. Daily counts and
// efficiency cover tickets created today; average handling time and top
// services cover the whole history.
func Build(tickets []types.Ticket, now time.Time, topN int) Report {
	today := Today(now)
	todays := InWindow(tickets, today)
	daily := CountByState(todays)
	overall := CountByState(tickets)
	avg := AverageHandling(tickets)

	return Report{
		GeneratedAt:       now,
		Window:            today,
		CreatedToday:      len(todays),
		ServedToday:       daily[types.StateServed],
		NoShowToday:       daily[types.StateNoShow],
		Waiting:           overall[types.StateWaiting],
		Called:            overall[types.StateCalled],
		Efficiency:        Efficiency(tickets, today),
		EfficiencyPercent: EfficiencyPercent(tickets, today),
		AverageHandling:   avg,
		AverageMinutes:    Minutes(avg),
		TopServices:       TopServices(tickets, topN),
		ServedHistory:     ServedHistory(tickets, today),
	}
}
