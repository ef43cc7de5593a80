package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/solvys/predictipulse/internal/config"
	"github.com/solvys/predictipulse/internal/feeds/boltodds"
	"github.com/solvys/predictipulse/internal/gateway"
	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/internal/settings"
	"github.com/solvys/predictipulse/internal/venue/coinbase"
	"github.com/solvys/predictipulse/internal/venue/kalshi"
)

var errMissingCredentials = errors.New("missing venue credentials")

// newRegistry registers the venues this build knows how to construct
func newRegistry(cfg config.VenueConfig, logger zerolog.Logger) *gateway.Registry {
	reg := gateway.NewRegistry()

	reg.Register("kalshi", func() (gateway.ExecutionVenue, error) {
		if cfg.KeyID == "" || cfg.PrivateKeyPath == "" {
			return nil, errMissingCredentials
		}
		key, err := kalshi.LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		signer, err := kalshi.NewRSASigner(cfg.KeyID, key)
		if err != nil {
			return nil, err
		}
		return kalshi.NewClient(cfg.BaseURL, signer,
			kalshi.WithTimeout(cfg.Timeout),
			kalshi.WithRetries(cfg.MaxRetries, 500*time.Millisecond),
			kalshi.WithRateLimit(cfg.RatePerSec),
			kalshi.WithLogger(logger),
		), nil
	})

	reg.Register("coinbase", func() (gateway.ExecutionVenue, error) {
		return coinbase.NewClient(cfg.KeyID, cfg.APISecret, logger), nil
	})

	return reg
}

// buildVenue returns the configured venue, or nil to run the simulation
func buildVenue(cfg *config.Config, logger zerolog.Logger) gateway.ExecutionVenue {
	if cfg.Venue.Name == "" || cfg.Venue.Name == "none" {
		logger.Info().Msg("no venue configured, running simulation")
		return nil
	}

	venue, err := newRegistry(cfg.Venue, logger).Build(cfg.Venue.Name)
	if err != nil {
		logger.Warn().Err(err).Str("venue", cfg.Venue.Name).Msg("venue unavailable, running simulation")
		return nil
	}

	logger.Info().Str("venue", venue.Name()).Msg("venue client initialized")
	return venue
}

type oddsIngester interface {
	Ingest(ctx context.Context, odds []*models.SharpOdds) ([]*models.ModeledProbability, error)
}

// startOddsFeed polls BoltOdds on the refresh interval and, when enabled,
// also consumes its websocket stream. Without an API key it does nothing.
func startOddsFeed(ctx context.Context, cfg *config.Config, values settings.Values, ingester oddsIngester, logger zerolog.Logger) {
	apiKey := cfg.Odds.BoltOddsAPIKey
	if apiKey == "" {
		if p, err := settings.ParamsFrom(settings.Merge(settings.Defaults(), values)); err == nil {
			apiKey = p.BoltOddsAPIKey
		}
	}
	if apiKey == "" {
		logger.Info().Msg("no BoltOdds API key, sharp odds feed disabled")
		return
	}

	client := boltodds.NewClient(boltodds.Config{
		APIKey:  apiKey,
		BaseURL: cfg.Odds.BoltOddsBaseURL,
		WSURL:   cfg.Odds.BoltOddsWSURL,
		Timeout: cfg.Odds.Timeout,
	}, logger)

	ingest := func(ctx context.Context, odds []*models.SharpOdds) {
		probs, err := ingester.Ingest(ctx, odds)
		if err != nil {
			logger.Warn().Err(err).Int("odds", len(odds)).Msg("failed to ingest sharp odds")
			return
		}
		logger.Debug().Int("odds", len(odds)).Int("probabilities", len(probs)).Msg("sharp odds ingested")
	}

	interval := cfg.Odds.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			odds, err := client.FetchMarkets(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("BoltOdds refresh failed")
			} else {
				ingest(ctx, odds)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	if cfg.Odds.BoltOddsStream {
		go func() {
			if err := client.Stream(ctx, boltodds.Handler(ingest)); err != nil {
				logger.Error().Err(err).Msg("BoltOdds stream stopped")
			}
		}()
	}
}
