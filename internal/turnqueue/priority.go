package turnqueue

import (
	"cmp"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
)

// Rank returns the call order of a priority class, lowest first
func Rank(p types.PriorityClass) int {
	switch p {
	case types.PriorityUrgent:
		return 0
	case types.PriorityPreferential:
		return 1
	default:
		return 2
	}
}

// Compare orders waiting tickets: priority rank first, then the earlier
// sequence number. It returns a negative number when a is called before b.
func Compare(a, b *types.Ticket) int {
	if c := cmp.Compare(Rank(a.Priority), Rank(b.Priority)); c != 0 {
		return c
	}
	return cmp.Compare(a.Number, b.Number)
}
