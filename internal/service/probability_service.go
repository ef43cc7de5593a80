package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solvys/predictipulse/internal/models"
)

// ProbabilityService models sharp odds into true probabilities, caches
// them, and answers lookups from the scanner.
type ProbabilityService struct {
	modeler Modeler
	cache   Cache
	logger  zerolog.Logger
}

// NewProbabilityService creates a new probability service
func NewProbabilityService(modeler Modeler, cache Cache, logger zerolog.Logger) *ProbabilityService {
	return &ProbabilityService{
		modeler: modeler,
		cache:   cache,
		logger:  logger.With().Str("component", "probability_service").Logger(),
	}
}

// Ingest models a batch of sharp quotes and caches the results
func (s *ProbabilityService) Ingest(ctx context.Context, odds []*models.SharpOdds) ([]*models.ModeledProbability, error) {
	if len(odds) == 0 {
		return nil, nil
	}

	modeled, err := s.modeler.Model(odds)
	if err != nil {
		return nil, fmt.Errorf("consensus model failed: %w", err)
	}

	if err := s.cache.SetBatch(ctx, modeled); err != nil {
		s.logger.Warn().
			Err(err).
			Int("count", len(modeled)).
			Msg("failed to cache modeled probabilities")
		// Don't fail ingestion on cache errors
	}

	s.logger.Info().
		Int("input_count", len(odds)).
		Int("output_count", len(modeled)).
		Msg("modeled and cached sharp odds")

	return modeled, nil
}

// TrueProbability returns the modeled probability for a market item. An
// explicit selection is looked up directly; otherwise the longest cached
// selection of the sport whose name appears in the item label wins.
func (s *ProbabilityService) TrueProbability(ctx context.Context, item models.MarketItem) (float64, bool) {
	sport := strings.ToUpper(item.Category)

	if item.Selection != "" {
		prob, err := s.cache.Get(ctx, sport, item.Selection)
		if err == nil && prob != nil {
			return prob.Probability, true
		}
		if err != nil {
			s.logger.Debug().
				Err(err).
				Str("sport", sport).
				Str("selection", item.Selection).
				Msg("no modeled probability for selection")
		}
	}

	probs, err := s.cache.GetBySport(ctx, sport)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("sport", sport).
			Msg("failed to read modeled probabilities")
		return 0, false
	}

	label := strings.ToLower(item.Label)
	var best *models.ModeledProbability
	for _, p := range probs {
		if p == nil || p.Selection == "" {
			continue
		}
		if !strings.Contains(label, strings.ToLower(p.Selection)) {
			continue
		}
		// Longest name wins so "New York Rangers" beats "Rangers"
		if best == nil || len(p.Selection) > len(best.Selection) {
			best = p
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Probability, true
}

// BySport returns every cached probability for a sport
func (s *ProbabilityService) BySport(ctx context.Context, sport string) ([]*models.ModeledProbability, error) {
	probs, err := s.cache.GetBySport(ctx, strings.ToUpper(sport))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve probabilities for sport: %w", err)
	}
	return probs, nil
}
