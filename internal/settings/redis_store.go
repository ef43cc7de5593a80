package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisKey is where RedisStore keeps the settings document
const DefaultRedisKey = "predictipulse:settings"

// RedisStore keeps settings as a JSON document under a single key
type RedisStore struct {
	client redis.UniversalClient
	key    string
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client redis.UniversalClient, key string, logger zerolog.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		client: client,
		key:    key,
		logger: logger.With().Str("component", "settings_redis_store").Logger(),
	}
}

// Load returns the stored settings merged over the defaults
func (s *RedisStore) Load(ctx context.Context) (Values, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings from Redis: %w", err)
	}

	var stored Values
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return Merge(Defaults(), stored), nil
}

// Save merges values over the stored document and writes it back in one
// optimistic transaction.
func (s *RedisStore) Save(ctx context.Context, values Values) error {
	txf := func(tx *redis.Tx) error {
		current := Defaults()
		data, err := tx.Get(ctx, s.key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("failed to get settings from Redis: %w", err)
		default:
			var stored Values
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("failed to unmarshal settings: %w", err)
			}
			current = Merge(current, stored)
		}

		merged, err := json.Marshal(Merge(current, values))
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, merged, 0)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txf, s.key); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.logger.Debug().Str("key", s.key).Int("keys", len(values)).Msg("saved settings")
	return nil
}

// Reset restores the defaults
func (s *RedisStore) Reset(ctx context.Context) (Values, error) {
	defaults := Defaults()
	data, err := json.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to reset settings: %w", err)
	}
	s.logger.Info().Str("key", s.key).Msg("settings reset to defaults")
	return defaults, nil
}
