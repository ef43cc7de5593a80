package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/solvys/predictipulse/internal/models"
)

// ErrNotFound is returned when no probability is cached for a key
var ErrNotFound = errors.New("probability not found in cache")

// RedisCache caches modeled probabilities in Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// RedisCacheConfig holds Redis cache configuration
type RedisCacheConfig struct {
	Addr     string // e.g., "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // e.g., 15 * time.Minute
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(config RedisCacheConfig, logger zerolog.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisCache{
		client: client,
		ttl:    config.TTL,
		logger: logger.With().Str("component", "redis_cache").Logger(),
	}
}

// Client exposes the underlying client for other Redis-backed stores
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// probabilityKey builds prob:{SPORT}:{selection}
func probabilityKey(sport, selection string) string {
	return fmt.Sprintf("prob:%s:%s", strings.ToUpper(sport), strings.ToLower(strings.TrimSpace(selection)))
}

// Set caches a modeled probability
func (c *RedisCache) Set(ctx context.Context, prob *models.ModeledProbability) error {
	key := probabilityKey(prob.Sport, prob.Selection)

	data, err := json.Marshal(prob)
	if err != nil {
		return fmt.Errorf("failed to marshal probability: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}

	c.logger.Debug().
		Str("key", key).
		Dur("ttl", c.ttl).
		Msg("cached modeled probability")

	return nil
}

// Get retrieves a cached probability
func (c *RedisCache) Get(ctx context.Context, sport, selection string) (*models.ModeledProbability, error) {
	key := probabilityKey(sport, selection)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get from Redis: %w", err)
	}

	var prob models.ModeledProbability
	if err := json.Unmarshal(data, &prob); err != nil {
		return nil, fmt.Errorf("failed to unmarshal probability: %w", err)
	}

	return &prob, nil
}

// SetBatch caches multiple probabilities in one pipeline
func (c *RedisCache) SetBatch(ctx context.Context, probs []*models.ModeledProbability) error {
	if len(probs) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()

	for _, prob := range probs {
		data, err := json.Marshal(prob)
		if err != nil {
			c.logger.Error().Err(err).Msg("failed to marshal probability")
			continue
		}
		pipe.Set(ctx, probabilityKey(prob.Sport, prob.Selection), data, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute pipeline: %w", err)
	}

	c.logger.Info().
		Int("count", len(probs)).
		Msg("cached batch of modeled probabilities")

	return nil
}

// GetBySport retrieves all cached probabilities for a sport
func (c *RedisCache) GetBySport(ctx context.Context, sport string) ([]*models.ModeledProbability, error) {
	pattern := fmt.Sprintf("prob:%s:*", strings.ToUpper(sport))

	var cursor uint64
	var keys []string

	for {
		var scanKeys []string
		var err error
		scanKeys, cursor, err = c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, scanKeys...)

		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return []*models.ModeledProbability{}, nil
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get keys: %w", err)
	}

	probs := make([]*models.ModeledProbability, 0, len(keys))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired between SCAN and MGET
			continue
		}

		var prob models.ModeledProbability
		if err := json.Unmarshal([]byte(raw), &prob); err != nil {
			c.logger.Warn().Err(err).Str("key", keys[i]).Msg("failed to unmarshal probability")
			continue
		}

		probs = append(probs, &prob)
	}

	return probs, nil
}

// Ping checks Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
