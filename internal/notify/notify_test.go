package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNotice() types.CallNotice {
	return types.CallNotice{
		Type:      types.MessageTicketCalled,
		TicketID:  "t-1",
		Number:    12,
		Counter:   4,
		Service:   "Laboratorio",
		Priority:  types.PriorityUrgent,
		CalledAt:  time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Sound:     true,
		VoiceRate: 0.7,
		Volume:    0.9,
	}
}

type fakeBroadcaster struct {
	counter int
	message []byte
}

func (b *fakeBroadcaster) BroadcastToCounter(counter int, message []byte) {
	b.counter = counter
	b.message = message
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

func TestHubNotifier(t *testing.T) {
	b := &fakeBroadcaster{}
	n := NewHubNotifier(b, zerolog.Nop())

	n.TicketCalled(context.Background(), sampleNotice())

	assert.Equal(t, 4, b.counter)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b.message, &got))
	assert.Equal(t, "ticket_called", got["type"])
	assert.Equal(t, float64(12), got["number"])
	assert.Equal(t, "Laboratorio", got["service"])
}

func TestKafkaNotifierPublishes(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w, zerolog.Nop())

	n.TicketCalled(context.Background(), sampleNotice())

	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 5*time.Millisecond)
	w.mu.Lock()
	msg := w.msgs[0]
	w.mu.Unlock()

	assert.Equal(t, "12", string(msg.Key))
	var got types.CallNotice
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, 4, got.Counter)
	assert.Equal(t, types.PriorityUrgent, got.Priority)

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifierSwallowsErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	n := NewKafkaNotifier(w, zerolog.Nop())

	assert.NotPanics(t, func() {
		n.TicketCalled(context.Background(), sampleNotice())
	})
	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestKafkaNotifierPublishesInCallOrder(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w, zerolog.Nop())

	for i := 1; i <= 20; i++ {
		notice := sampleNotice()
		notice.Number = i
		n.TicketCalled(context.Background(), notice)
	}
	require.NoError(t, n.Close())

	require.Equal(t, 20, w.count())
	for i, msg := range w.msgs {
		assert.Equal(t, strconv.Itoa(i+1), string(msg.Key))
	}
}

func TestKafkaNotifierIgnoresNoticesAfterClose(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w, zerolog.Nop())
	require.NoError(t, n.Close())

	assert.NotPanics(t, func() {
		n.TicketCalled(context.Background(), sampleNotice())
	})
	assert.Equal(t, 0, w.count())
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"k1:9092", "k2:9092"}, "turnos.calls")
	assert.Equal(t, "turnos.calls", w.Topic)
	assert.Equal(t, "tcp", w.Addr.Network())
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}

type countingNotifier struct{ n int }

func (c *countingNotifier) TicketCalled(context.Context, types.CallNotice) { c.n++ }

func TestMultiFansOut(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	m := Multi{a, Noop{}, b}

	m.TicketCalled(context.Background(), sampleNotice())

	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
