package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/solvys/predictipulse/internal/models"
)

// MarketDataConfig holds aggregator settings
type MarketDataConfig struct {
	SourceTimeout time.Duration // per-source deadline covering all retries
	MaxAttempts   int
	RetryDelay    time.Duration
}

// MarketData fans a listing out to every source and concatenates the
// results in source order. It never fails: a source that errors after its
// retries contributes nothing and is logged.
type MarketData struct {
	sources []MarketDataSource
	config  MarketDataConfig
	retry   *RetryPolicy
	logger  zerolog.Logger
}

// NewMarketData creates an aggregator over sources
func NewMarketData(sources []MarketDataSource, config MarketDataConfig, logger zerolog.Logger) *MarketData {
	if config.SourceTimeout <= 0 {
		config.SourceTimeout = 15 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	return &MarketData{
		sources: sources,
		config:  config,
		retry:   NewRetryPolicy(config.MaxAttempts, config.RetryDelay),
		logger:  logger.With().Str("component", "market_data").Logger(),
	}
}

// Sources returns the names of the configured sources
func (m *MarketData) Sources() []string {
	names := make([]string, len(m.sources))
	for i, s := range m.sources {
		names[i] = s.Name()
	}
	return names
}

// ListItems returns the items of every healthy source
func (m *MarketData) ListItems(ctx context.Context, filter models.MarketFilter) []models.MarketItem {
	results := make([][]models.MarketItem, len(m.sources))

	var g errgroup.Group
	for i, src := range m.sources {
		g.Go(func() error {
			results[i] = m.fetch(ctx, src, filter)
			return nil
		})
	}
	_ = g.Wait()

	items := make([]models.MarketItem, 0)
	for _, r := range results {
		items = append(items, r...)
	}
	return items
}

func (m *MarketData) fetch(ctx context.Context, src MarketDataSource, filter models.MarketFilter) (items []models.MarketItem) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("source", src.Name()).
				Interface("panic", r).
				Msg("market data source panicked")
			items = nil
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, m.config.SourceTimeout)
	defer cancel()

	err := m.retry.Execute(ctx, func(ctx context.Context) error {
		var err error
		items, err = src.ListItems(ctx, filter)
		return err
	})
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("source", src.Name()).
			Msg("market data source failed")
		return nil
	}

	m.logger.Debug().
		Str("source", src.Name()).
		Int("count", len(items)).
		Msg("fetched market items")
	return items
}
