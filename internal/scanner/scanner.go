// Package scanner turns market listings into sized opportunities.
package scanner

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/solvys/predictipulse/internal/gateway"
	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/internal/settings"
	"github.com/solvys/predictipulse/pkg/kelly"
)

// Scanner joins market items with the probability model
type Scanner struct {
	model  gateway.ProbabilityModel
	now    func() time.Time
	logger zerolog.Logger
}

// New creates a scanner. A nil model passes every in-band item through
// with zero edge.
func New(model gateway.ProbabilityModel, logger zerolog.Logger) *Scanner {
	return &Scanner{
		model:  model,
		now:    time.Now,
		logger: logger.With().Str("component", "scanner").Logger(),
	}
}

// Scan evaluates items in order and returns one opportunity per item whose
// implied probability is valid and inside [MinTrueProb, MaxTrueProb].
// Stakes are only sized when the modeled probability beats the market;
// Actionable marks the ones that also clear TargetBuyEV.
func (s *Scanner) Scan(ctx context.Context, items []models.MarketItem, params settings.Params, bankroll float64) []models.Opportunity {
	limits := kelly.Limits{
		KellyMultiplier:  params.KellyMultiplier,
		MaxDollarBet:     params.MaxDollarBet,
		MaxPercentageBet: params.MaxPercentageBet,
	}
	minEdge := params.TargetBuyEV * 100
	ts := s.now()

	opps := make([]models.Opportunity, 0, len(items))
	skipped := 0

	for _, item := range items {
		implied := item.ImpliedProb
		if math.IsNaN(implied) || implied <= 0 || implied >= 1 {
			skipped++
			continue
		}
		if implied < params.MinTrueProb || implied > params.MaxTrueProb {
			continue
		}

		modeled := implied
		if s.model != nil {
			if p, ok := s.model.TrueProbability(ctx, item); ok && p >= 0 && p <= 1 {
				modeled = p
			}
		}

		var stake float64
		if modeled > implied {
			stake = kelly.FloorCents(kelly.Size(modeled, implied, bankroll, limits))
		}
		edge := kelly.Round(kelly.EdgePoints(modeled, implied), 2)

		team := item.Selection
		if team == "" {
			team = item.Label
		}

		opps = append(opps, models.Opportunity{
			MarketID:   item.ID,
			Matchup:    item.Label,
			Team:       team,
			Sport:      item.Category,
			TrueProb:   kelly.Round(modeled, 4),
			MarketProb: kelly.Round(implied, 4),
			Edge:       edge,
			KellyStake: stake,
			Actionable: stake > 0 && edge >= minEdge,
			Timestamp:  ts,
		})
	}

	s.logger.Debug().
		Int("items", len(items)).
		Int("opportunities", len(opps)).
		Int("invalid", skipped).
		Msg("scan complete")

	return opps
}
