package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"QuantScout/internal/model"
)

// EventSignal is the event type of published signals.
const EventSignal = "SIGNAL"

// SignalEvent is the message published for every reported signal.
type SignalEvent struct {
	EventType  string           `json:"event_type"`
	Strategy   string           `json:"strategy"`
	Symbol     string           `json:"symbol"`
	Date       string           `json:"date"`
	Close      float64          `json:"close"`
	Indicators model.Indicators `json:"indicators"`
	Sentiment  model.Sentiment  `json:"sentiment"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewSignalEvent builds the event for a report at time now.
func NewSignalEvent(r model.SignalReport, now time.Time) SignalEvent {
	return SignalEvent{
		EventType:  EventSignal,
		Strategy:   r.Signal.Strategy,
		Symbol:     r.Signal.Symbol,
		Date:       r.Signal.Date.Format("2006-01-02"),
		Close:      r.Signal.Close,
		Indicators: r.Signal.Indicators,
		Sentiment:  r.Sentiment,
		Timestamp:  now.UTC(),
	}
}

// Publisher fans signal events out to downstream consumers.
type Publisher interface {
	PublishSignal(ctx context.Context, evt SignalEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher handles publishing events to Kafka
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a new Kafka producer
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, topic: topic}
}

// PublishSignal writes evt keyed by symbol so one symbol stays on one partition.
func (p *KafkaPublisher) PublishSignal(ctx context.Context, evt SignalEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.Symbol),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka producer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishSignal(context.Context, SignalEvent) error { return nil }
func (NoopPublisher) Close() error                                     { return nil }

// New returns a Kafka publisher when brokers are configured.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
