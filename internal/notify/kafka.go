package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/SSTConexionSalud/sistema-turnos/internal/metrics"
	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	publishTimeout = 5 * time.Second
	queueSize      = 256
)

// MessageWriter is the part of kafka.Writer used to publish notices
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes call notices to a Kafka topic, keyed by ticket
// number. A single goroutine publishes them in the order they were called.
type KafkaNotifier struct {
	writer MessageWriter
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

// NewKafkaWriter builds a writer for topic on brokers
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewKafkaNotifier creates a notifier over writer and starts its publisher
func NewKafkaNotifier(writer MessageWriter, logger zerolog.Logger) *KafkaNotifier {
	n := &KafkaNotifier{
		writer: writer,
		logger: logger,
		queue:  make(chan kafka.Message, queueSize),
		done:   make(chan struct{}),
	}
	go n.run()
	return n
}

// TicketCalled queues notice for publishing. A full queue drops it.
func (n *KafkaNotifier) TicketCalled(_ context.Context, notice types.CallNotice) {
	value, err := json.Marshal(notice)
	if err != nil {
		metrics.Get().RecordNotifyFailure("kafka")
		n.logger.Error().Err(err).Int("number", notice.Number).Msg("failed to marshal call notice")
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(notice.Number)),
		Value: value,
		Time:  notice.CalledAt,
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- msg:
	default:
		metrics.Get().RecordNotifyFailure("kafka")
		n.logger.Warn().Int("number", notice.Number).Msg("kafka queue full, call notice dropped")
	}
}

func (n *KafkaNotifier) run() {
	defer close(n.done)
	for msg := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := n.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			metrics.Get().RecordNotifyFailure("kafka")
			n.logger.Error().Err(err).
				Str("number", string(msg.Key)).
				Msg("failed to publish call notice")
		}
	}
}

// Close publishes what is queued, then closes the writer
func (n *KafkaNotifier) Close() error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	<-n.done
	return n.writer.Close()
}
