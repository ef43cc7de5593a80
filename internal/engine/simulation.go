package engine

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/pkg/kelly"
)

var simMatchups = [][2]string{
	{"Lakers", "Celtics"},
	{"Warriors", "Suns"},
	{"Knicks", "Heat"},
	{"Eagles", "Cowboys"},
	{"Chiefs", "Bills"},
	{"Rangers", "Bruins"},
}

// seedPaperBankroll funds the simulation once, on its first start
func (e *Engine) seedPaperBankroll() {
	e.state.Lock()
	defer e.state.Unlock()
	if e.state.captured {
		return
	}
	e.state.bankroll = e.opts.PaperBankroll
	e.state.initialBankroll = e.opts.PaperBankroll
	e.state.captured = true
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// simulationCycle synthesizes one opportunity and sometimes settles it
func (e *Engine) simulationCycle(ctx context.Context, rng *rand.Rand) {
	pair := simMatchups[rng.IntN(len(simMatchups))]
	home, away := pair[0], pair[1]

	trueProb := kelly.Round(uniform(rng, 0.35, 0.65), 3)
	marketProb := min(max(trueProb-uniform(rng, 0.02, 0.08), 0.05), 0.95)

	params := e.Params()
	stake := kelly.FloorCents(kelly.Size(trueProb, marketProb, e.Bankroll(), kelly.Limits{
		KellyMultiplier:  params.KellyMultiplier,
		MaxDollarBet:     params.MaxDollarBet,
		MaxPercentageBet: params.MaxPercentageBet,
	}))
	edge := kelly.EdgePoints(trueProb, marketProb)

	team := away
	if rng.Float64() > 0.5 {
		team = home
	}

	opp := models.Opportunity{
		Matchup:    home + " vs " + away,
		Team:       team,
		Sport:      "sim",
		TrueProb:   trueProb,
		MarketProb: marketProb,
		Edge:       kelly.Round(edge, 2),
		KellyStake: stake,
		Actionable: stake > 0 && edge >= params.TargetBuyEV*100,
		Timestamp:  e.now(),
	}

	e.publishOpportunity(ctx, ModeSimulation, opp)
	e.log(LevelInfo, fmt.Sprintf("Opportunity: %s edge=%.2f%% stake=$%.2f", opp.Matchup, edge, stake))

	if rng.Float64() < e.opts.SimTradeProbability && stake > e.opts.MinSimStake {
		e.settleSimulated(ctx, rng, opp)
	}
}

// settleSimulated resolves opp as a win with probability TrueProb and
// appends the trade to the ledger
func (e *Engine) settleSimulated(ctx context.Context, rng *rand.Rand, opp models.Opportunity) {
	win := rng.Float64() < opp.TrueProb
	pnl := kelly.RoundCents(kelly.Payout(opp.KellyStake, opp.MarketProb, win))

	result := models.ResultLoss
	if win {
		result = models.ResultWin
	}

	trade := models.Trade{
		ID:         "paper-" + uuid.NewString(),
		Matchup:    opp.Matchup,
		Team:       opp.Team,
		Stake:      kelly.RoundCents(opp.KellyStake),
		EntryPrice: opp.MarketProb,
		TrueProb:   opp.TrueProb,
		Edge:       opp.Edge,
		Result:     result,
		PnL:        pnl,
		Timestamp:  e.now(),
	}

	e.state.Lock()
	if win {
		e.state.wins++
	} else {
		e.state.losses++
	}
	e.state.bankroll += pnl
	e.state.totalPnL += pnl
	e.state.ledger = append(e.state.ledger, trade)
	bankroll, total := e.state.bankroll, e.state.totalPnL
	e.state.Unlock()

	e.metrics.SetAccount(bankroll, total)
	e.publishTrade(ctx, ModeSimulation, trade)

	level := LevelInfo
	if !win {
		level = LevelWarning
	}
	e.log(level, fmt.Sprintf("TRADE %s: %s (%s) stake=$%.2f → P&L=$%+.2f | Bankroll: $%.2f",
		result, trade.Matchup, trade.Team, trade.Stake, trade.PnL, bankroll))

	if e.sink != nil {
		if err := e.sink.LogTrade(ctx, trade, models.SourcePaper); err != nil {
			e.logger.Warn().Err(err).Str("trade_id", trade.ID).Msg("failed to record paper trade")
		}
	}
}
