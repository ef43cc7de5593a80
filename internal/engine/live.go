package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/pkg/kelly"
)

// liveCycle syncs the account, then scans and publishes while inside the
// trading window. A failed sync skips the rest of the cycle.
func (e *Engine) liveCycle(ctx context.Context) {
	if err := e.syncAccount(ctx); err != nil {
		e.metrics.IncCycleError("sync")
		e.log(LevelWarning, fmt.Sprintf("Venue sync failed: %v", err))
		return
	}

	params := e.Params()
	if !params.InTradingWindow(e.now()) {
		e.logger.Debug().
			Int("trading_start", params.TradingStart).
			Int("trading_end", params.TradingEnd).
			Msg("outside trading window, skipping scan")
		return
	}
	if e.marketData == nil {
		return
	}

	items := e.marketData.ListItems(ctx, models.MarketFilter{
		Categories: params.Sports,
		Status:     "open",
	})
	opps := e.scanner.Scan(ctx, items, params, e.Bankroll())

	actionable := 0
	for _, opp := range opps {
		if ctx.Err() != nil {
			return
		}
		e.publishOpportunity(ctx, ModeLive, opp)
		if !opp.Actionable {
			continue
		}
		actionable++
		e.log(LevelInfo, fmt.Sprintf("Opportunity: %s (%s) edge=%.2f%% stake=$%.2f",
			opp.Matchup, opp.Team, opp.Edge, opp.KellyStake))
		if e.opts.AutoTrade {
			e.autoTrade(ctx, opp)
		}
	}

	e.logger.Debug().
		Int("items", len(items)).
		Int("opportunities", len(opps)).
		Int("actionable", actionable).
		Msg("live scan complete")
}

// syncAccount replaces bankroll and ledger with the venue's current view
func (e *Engine) syncAccount(ctx context.Context) error {
	balance, err := e.venue.Balance(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch balance: %w", err)
	}
	positions, err := e.venue.Positions(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch positions: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	trades := positionsToTrades(e.venue.Name(), positions, e.now())

	e.state.Lock()
	e.state.bankroll = kelly.RoundCents(balance)
	if !e.state.captured {
		e.state.initialBankroll = e.state.bankroll
		e.state.captured = true
	}
	e.state.totalPnL = kelly.RoundCents(e.state.bankroll - e.state.initialBankroll)
	e.state.ledger = trades
	bankroll, pnl := e.state.bankroll, e.state.totalPnL
	e.state.Unlock()

	e.metrics.SetAccount(bankroll, pnl)

	if e.sink != nil && len(trades) > 0 {
		if err := e.sink.BulkLog(ctx, trades, models.SourceActual); err != nil {
			e.logger.Warn().Err(err).Msg("failed to record venue positions")
		}
	}

	e.logger.Debug().
		Float64("bankroll", bankroll).
		Int("positions", len(trades)).
		Msg("account synced")
	return nil
}

// positionsToTrades renders open positions as PENDING ledger entries
func positionsToTrades(venue string, positions []models.Position, ts time.Time) []models.Trade {
	trades := make([]models.Trade, 0, len(positions))
	for _, p := range positions {
		id := p.MarketID
		if id == "" {
			id = "unknown"
		}
		side := strings.ToUpper(p.Side)
		if side == "" {
			side = "YES"
		}
		trades = append(trades, models.Trade{
			ID:         venue + "-" + id,
			Matchup:    id,
			Team:       side,
			Stake:      p.Size,
			EntryPrice: p.AvgPrice,
			TrueProb:   p.AvgPrice,
			Result:     models.ResultPending,
			PnL:        kelly.RoundCents(p.PnL),
			Timestamp:  ts,
		})
	}
	return trades
}

// autoTrade converts an actionable opportunity into a limit buy of YES
// contracts at the market price
func (e *Engine) autoTrade(ctx context.Context, opp models.Opportunity) {
	if opp.MarketID == "" {
		return
	}

	cents := int(math.Round(opp.MarketProb * 100))
	if cents <= 0 || cents >= 100 {
		return
	}
	count := int(math.Floor(opp.KellyStake * 100 / float64(cents)))
	if count < 1 {
		e.logger.Debug().Str("market", opp.MarketID).Float64("stake", opp.KellyStake).Msg("stake below one contract")
		return
	}

	order, err := e.PlaceOrder(ctx, models.OrderRequest{
		MarketID: opp.MarketID,
		Side:     "yes",
		Price:    float64(cents) / 100,
		Size:     count,
	})
	if err != nil {
		e.metrics.IncCycleError("order")
		e.log(LevelWarning, fmt.Sprintf("Order failed for %s: %v", opp.MarketID, err))
		return
	}

	e.log(LevelInfo, fmt.Sprintf("Order placed: %s YES x%d @ %dc (%s)", opp.MarketID, count, cents, order.ID))
}
