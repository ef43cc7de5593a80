package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solvys/predictipulse/internal/models"
)

var leagues = []string{"NFL", "NBA", "MLB", "NHL"}

var sportsKeywords = append(slices.Clone(leagues), "SPORTS", "SUPER", "PLAYOFF")

// sportOf picks the category of an event: a requested category or a league
// named in the title, else the venue's own category
func sportOf(title, fallback string, categories []string) string {
	upper := strings.ToUpper(title)
	for _, c := range categories {
		if c != "" && strings.Contains(upper, strings.ToUpper(c)) {
			return strings.ToUpper(c)
		}
	}
	for _, l := range leagues {
		if strings.Contains(upper, l) {
			return l
		}
	}
	return fallback
}

func isSportsEvent(title string, categories []string) bool {
	upper := strings.ToUpper(title)
	for _, kw := range sportsKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	for _, c := range categories {
		if c != "" && strings.Contains(upper, strings.ToUpper(c)) {
			return true
		}
	}
	return false
}

// ListItems returns the open markets of sports events. Items of a league that
// is not among filter.Categories are dropped.
func (c *Client) ListItems(ctx context.Context, filter models.MarketFilter) ([]models.MarketItem, error) {
	status := filter.Status
	if status == "" {
		status = "open"
	}

	var events eventsResponse
	if err := c.get(ctx, "/events", url.Values{
		"status": {status},
		"limit":  {"200"},
	}, &events); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	wanted := make([]string, 0, len(filter.Categories))
	for _, cat := range filter.Categories {
		wanted = append(wanted, strings.ToUpper(cat))
	}

	var items []models.MarketItem
	for _, ev := range events.Events {
		if !isSportsEvent(ev.Title, wanted) {
			continue
		}
		sport := sportOf(ev.Title, ev.Category, wanted)
		if len(wanted) > 0 && slices.Contains(leagues, sport) && !slices.Contains(wanted, sport) {
			continue
		}

		var markets marketsResponse
		if err := c.get(ctx, "/markets", url.Values{
			"event_ticker": {ev.EventTicker},
			"status":       {status},
			"limit":        {"100"},
		}, &markets); err != nil {
			return nil, fmt.Errorf("failed to list markets for %s: %w", ev.EventTicker, err)
		}

		for _, m := range markets.Markets {
			items = append(items, toMarketItem(m, sport))
			if filter.Limit > 0 && len(items) >= filter.Limit {
				return items, nil
			}
		}
	}

	c.logger.Debug().
		Int("events", len(events.Events)).
		Int("items", len(items)).
		Msg("listed sports markets")

	return items, nil
}

func toMarketItem(m market, sport string) models.MarketItem {
	selection := m.Subtitle
	if selection == "" {
		selection = m.YesSubTitle
	}

	item := models.MarketItem{
		ID:          m.Ticker,
		Label:       m.Title,
		Selection:   selection,
		ImpliedProb: centsToProb(m.YesAsk),
		Volume:      float64(m.Volume),
		Category:    sport,
	}
	if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		item.CloseTime = t
	}
	return item
}

func centsToProb(cents int64) float64 {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).InexactFloat64()
}

func centsToDollars(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

func probToCents(p float64) int {
	return int(decimal.NewFromFloat(p).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}
