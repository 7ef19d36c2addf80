// Package events publishes ledger audit events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"go-pos-ledger/internal/model"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	TransactionCreated = "transaction.created"
	TransactionVoided  = "transaction.voided"
	StockAdjusted      = "stock.adjusted"
)

// Event is the envelope written to the audit topic. Key selects the
// partition, so all events of one transaction or product stay ordered.
type Event struct {
	Type       string       `json:"type"`
	Key        string       `json:"key"`
	OccurredAt time.Time    `json:"occurred_at"`
	Actor      *model.Actor `json:"actor,omitempty"`
	Data       interface{}  `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New returns a Kafka publisher, or a no-op one when no brokers are configured.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		log.Info().Msg("kafka brokers not configured, audit events disabled")
		return Noop{}
	}
	return NewKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		// Publishing happens after commit; delivery failures are logged, never
		// surfaced to the request that produced the event.
		Async: true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("messages", len(msgs)).Str("topic", topic).Msg("kafka delivery failed")
			}
		},
	})
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "marshal %s event", event.Type)
	}

	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s event", event.Type)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
