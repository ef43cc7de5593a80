package consensus

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/solvys/predictipulse/internal/models"
)

// Consensus turns sportsbook quotes into vig-free modeled probabilities
type Consensus struct {
	params models.ConsensusParams
	now    func() time.Time
	logger zerolog.Logger
}

// NewConsensus creates a new consensus model
func NewConsensus(params models.ConsensusParams, logger zerolog.Logger) *Consensus {
	if params.MinBooks < 1 {
		params.MinBooks = 1
	}
	return &Consensus{
		params: params,
		now:    time.Now,
		logger: logger.With().Str("component", "consensus").Logger(),
	}
}

type marketKey struct {
	eventID string
	market  string
}

type selectionAcc struct {
	sample *models.SharpOdds
	sum    decimal.Decimal
	books  int
	latest time.Time
}

// ImpliedProbability converts decimal odds to implied probability
func ImpliedProbability(odds decimal.Decimal) (decimal.Decimal, error) {
	if odds.LessThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("invalid decimal price: %s", odds.String())
	}
	return decimal.NewFromInt(1).Div(odds), nil
}

// Model computes the consensus probability for every selection in the batch.
// Each book's quotes within an event/market are normalized to sum to one,
// then averaged across books.
func (c *Consensus) Model(odds []*models.SharpOdds) ([]*models.ModeledProbability, error) {
	now := c.now()

	// event/market -> book -> quotes
	grouped := make(map[marketKey]map[string][]*models.SharpOdds)
	order := make([]marketKey, 0)

	for _, o := range odds {
		if o == nil {
			continue
		}
		if c.params.MaxAge > 0 && !o.Timestamp.IsZero() && now.Sub(o.Timestamp) > c.params.MaxAge {
			c.logger.Debug().
				Str("event_id", o.EventID).
				Str("book", o.Book).
				Msg("dropping stale quote")
			continue
		}
		if _, err := ImpliedProbability(o.DecimalPrice); err != nil {
			c.logger.Warn().
				Err(err).
				Str("event_id", o.EventID).
				Str("selection", o.Selection).
				Msg("skipping quote")
			continue
		}

		key := marketKey{eventID: o.EventID, market: o.Market}
		books, ok := grouped[key]
		if !ok {
			books = make(map[string][]*models.SharpOdds)
			grouped[key] = books
			order = append(order, key)
		}
		books[o.Book] = append(books[o.Book], o)
	}

	modeled := make([]*models.ModeledProbability, 0)
	for _, key := range order {
		modeled = append(modeled, c.modelMarket(grouped[key], now)...)
	}

	c.logger.Info().
		Int("input_count", len(odds)).
		Int("output_count", len(modeled)).
		Msg("consensus model complete")

	return modeled, nil
}

func (c *Consensus) modelMarket(books map[string][]*models.SharpOdds, now time.Time) []*models.ModeledProbability {
	acc := make(map[string]*selectionAcc)
	selections := make([]string, 0)

	for _, quotes := range books {
		// A single-sided quote carries no information about the vig
		if len(quotes) < 2 {
			continue
		}

		total := decimal.Zero
		implied := make([]decimal.Decimal, len(quotes))
		for i, q := range quotes {
			implied[i], _ = ImpliedProbability(q.DecimalPrice)
			total = total.Add(implied[i])
		}
		if total.IsZero() {
			continue
		}

		for i, q := range quotes {
			name := strings.TrimSpace(q.Selection)
			a, ok := acc[name]
			if !ok {
				a = &selectionAcc{sample: q}
				acc[name] = a
				selections = append(selections, name)
			}
			a.sum = a.sum.Add(implied[i].Div(total))
			a.books++
			if q.Timestamp.After(a.latest) {
				a.latest = q.Timestamp
			}
		}
	}

	sort.Strings(selections)

	out := make([]*models.ModeledProbability, 0, len(selections))
	for _, name := range selections {
		a := acc[name]
		if a.books < c.params.MinBooks {
			continue
		}
		prob := a.sum.Div(decimal.NewFromInt(int64(a.books))).Round(4)
		out = append(out, &models.ModeledProbability{
			ID:          uuid.New(),
			EventID:     a.sample.EventID,
			EventName:   a.sample.EventName,
			Sport:       a.sample.Sport,
			Market:      a.sample.Market,
			Selection:   name,
			Probability: prob.InexactFloat64(),
			Books:       a.books,
			Timestamp:   a.latest,
			ModeledAt:   now.UTC(),
		})
	}
	return out
}
