package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solvys/predictipulse/internal/models"
)

type memoryEntry struct {
	prob    models.ModeledProbability
	expires time.Time
}

// MemoryCache is an in-process cache used when Redis is disabled
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewMemoryCache creates an in-process cache. A zero ttl never expires.
func NewMemoryCache(ttl time.Duration, logger zerolog.Logger) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With().Str("component", "memory_cache").Logger(),
	}
}

func (c *MemoryCache) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *MemoryCache) live(e memoryEntry) bool {
	return e.expires.IsZero() || c.now().Before(e.expires)
}

// Set caches a modeled probability
func (c *MemoryCache) Set(ctx context.Context, prob *models.ModeledProbability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[probabilityKey(prob.Sport, prob.Selection)] = memoryEntry{prob: *prob, expires: c.expiry()}
	return nil
}

// Get retrieves a cached probability
func (c *MemoryCache) Get(ctx context.Context, sport, selection string) (*models.ModeledProbability, error) {
	c.mu.RLock()
	e, ok := c.entries[probabilityKey(sport, selection)]
	c.mu.RUnlock()

	if !ok || !c.live(e) {
		return nil, ErrNotFound
	}
	prob := e.prob
	return &prob, nil
}

// SetBatch caches multiple probabilities
func (c *MemoryCache) SetBatch(ctx context.Context, probs []*models.ModeledProbability) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	exp := c.expiry()
	for _, p := range probs {
		c.entries[probabilityKey(p.Sport, p.Selection)] = memoryEntry{prob: *p, expires: exp}
	}

	c.logger.Debug().Int("count", len(probs)).Msg("cached batch of modeled probabilities")
	return nil
}

// GetBySport retrieves all live probabilities for a sport and evicts expired ones
func (c *MemoryCache) GetBySport(ctx context.Context, sport string) ([]*models.ModeledProbability, error) {
	prefix := "prob:" + strings.ToUpper(sport) + ":"

	c.mu.Lock()
	defer c.mu.Unlock()

	probs := make([]*models.ModeledProbability, 0)
	for k, e := range c.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !c.live(e) {
			delete(c.entries, k)
			continue
		}
		prob := e.prob
		probs = append(probs, &prob)
	}
	return probs, nil
}

// Ping always succeeds
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close drops every entry
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}
