package engine

import (
	"math"

	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/pkg/kelly"
)

// Snapshot is a point-in-time copy of the engine's account state
type Snapshot struct {
	Bankroll        float64
	InitialBankroll float64
	TotalPnL        float64
	Wins            int
	Losses          int
	Ledger          []models.Trade
	Running         bool
	Mode            string
}

// Aggregate derives dashboard stats from a snapshot. It never divides by zero.
func Aggregate(s Snapshot) models.Stats {
	settled := s.Wins + s.Losses

	trades := settled
	if s.Mode == ModeLive {
		trades = len(s.Ledger)
	}

	var winRate float64
	if settled > 0 {
		winRate = float64(s.Wins) / float64(settled) * 100
	}

	return models.Stats{
		Bankroll:        kelly.RoundCents(s.Bankroll),
		InitialBankroll: kelly.RoundCents(s.InitialBankroll),
		TotalPnL:        kelly.RoundCents(s.TotalPnL),
		Trades:          trades,
		Wins:            s.Wins,
		Losses:          s.Losses,
		WinRate:         kelly.Round(winRate, 1),
		AvgRR:           kelly.Round(AvgRewardRisk(s.Ledger), 2),
		Running:         s.Running,
		Mode:            s.Mode,
	}
}

// AvgRewardRisk is mean winning P&L over mean absolute losing P&L, or 0 when
// either side is empty
func AvgRewardRisk(ledger []models.Trade) float64 {
	var winSum, lossSum float64
	var winN, lossN int
	for _, t := range ledger {
		switch {
		case t.PnL > 0:
			winSum += t.PnL
			winN++
		case t.PnL < 0:
			lossSum += math.Abs(t.PnL)
			lossN++
		}
	}
	if winN == 0 || lossN == 0 || lossSum == 0 {
		return 0
	}
	return (winSum / float64(winN)) / (lossSum / float64(lossN))
}
