package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/solvys/predictipulse/internal/models"
)

// Event types written to the events topic
const (
	EventOpportunity = "opportunity"
	EventTrade       = "trade"
)

// Event is the envelope mirrored to Kafka
type Event struct {
	Type        string              `json:"type"`
	Mode        string              `json:"mode"`
	Opportunity *models.Opportunity `json:"opportunity,omitempty"`
	Trade       *models.Trade       `json:"trade,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// MessageWriter is the subset of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors engine opportunities and trades to a Kafka topic.
// The default writer is async so publishing never blocks the engine.
type KafkaPublisher struct {
	writer MessageWriter
	logger zerolog.Logger
}

// KafkaPublisherConfig holds Kafka publisher configuration
type KafkaPublisherConfig struct {
	Brokers []string
	Topic   string // e.g., "predictipulse_events"
}

// NewKafkaPublisher creates an async Kafka publisher
func NewKafkaPublisher(config KafkaPublisherConfig, logger zerolog.Logger) *KafkaPublisher {
	l := logger.With().Str("component", "kafka_publisher").Logger()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				l.Warn().Err(err).Int("count", len(messages)).Msg("failed to deliver events")
			}
		},
	}

	return NewKafkaPublisherWithWriter(writer, l)
}

// NewKafkaPublisherWithWriter creates a publisher over an existing writer
func NewKafkaPublisherWithWriter(writer MessageWriter, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: logger,
	}
}

// PublishOpportunity mirrors an opportunity, keyed by matchup
func (p *KafkaPublisher) PublishOpportunity(ctx context.Context, mode string, opp models.Opportunity) error {
	return p.publish(ctx, opp.Matchup, Event{
		Type:        EventOpportunity,
		Mode:        mode,
		Opportunity: &opp,
		Timestamp:   opp.Timestamp,
	})
}

// PublishTrade mirrors a trade, keyed by trade id
func (p *KafkaPublisher) PublishTrade(ctx context.Context, mode string, trade models.Trade) error {
	return p.publish(ctx, trade.ID, Event{
		Type:      EventTrade,
		Mode:      mode,
		Trade:     &trade,
		Timestamp: trade.Timestamp,
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, key string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  event.Timestamp,
	}); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	p.logger.Debug().
		Str("type", event.Type).
		Str("key", key).
		Msg("mirrored event")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
