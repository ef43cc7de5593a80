package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/internal/service"
)

// KafkaConsumer consumes sharp odds batches from Kafka and caches the
// modeled probabilities
type KafkaConsumer struct {
	reader  *kafka.Reader
	modeler service.Modeler
	cache   service.Cache
	logger  zerolog.Logger
}

// KafkaConsumerConfig holds Kafka consumer configuration
type KafkaConsumerConfig struct {
	Brokers []string // e.g., ["localhost:9092"]
	Topic   string   // e.g., "sharp_odds"
	GroupID string   // e.g., "predictipulse"
}

// NewKafkaConsumer creates a new Kafka consumer
func NewKafkaConsumer(
	config KafkaConsumerConfig,
	modeler service.Modeler,
	cache service.Cache,
	logger zerolog.Logger,
) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.GroupID,
		MinBytes:       1e3,  // 1KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &KafkaConsumer{
		reader:  reader,
		modeler: modeler,
		cache:   cache,
		logger:  logger.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start consumes until ctx is cancelled
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("topic", c.reader.Config().Topic).
		Str("group_id", c.reader.Config().GroupID).
		Msg("started consuming from Kafka")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info().Msg("stopping Kafka consumer")
				return nil
			}
			c.logger.Error().Err(err).Msg("failed to fetch message")
			continue
		}

		if err := c.processMessage(ctx, msg.Value); err != nil {
			c.logger.Error().
				Err(err).
				Int64("offset", msg.Offset).
				Str("key", string(msg.Key)).
				Msg("failed to process message")
			// Don't commit if processing failed
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error().Err(err).Msg("failed to commit message")
		}
	}
}

// processMessage models and caches a single batch
func (c *KafkaConsumer) processMessage(ctx context.Context, value []byte) error {
	var kafkaMsg models.KafkaSharpOddsMessage
	if err := json.Unmarshal(value, &kafkaMsg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	c.logger.Debug().
		Int("odds_count", len(kafkaMsg.OddsData)).
		Str("batch_id", kafkaMsg.BatchID).
		Msg("processing sharp odds batch")

	odds := make([]*models.SharpOdds, len(kafkaMsg.OddsData))
	for i := range kafkaMsg.OddsData {
		odds[i] = &kafkaMsg.OddsData[i]
	}

	modeled, err := c.modeler.Model(odds)
	if err != nil {
		return fmt.Errorf("failed to model odds: %w", err)
	}

	if err := c.cache.SetBatch(ctx, modeled); err != nil {
		return fmt.Errorf("failed to cache probabilities: %w", err)
	}

	c.logger.Info().
		Int("input_count", len(odds)).
		Int("output_count", len(modeled)).
		Str("batch_id", kafkaMsg.BatchID).
		Msg("processed and cached modeled probabilities")

	return nil
}

// Close closes the Kafka reader
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
