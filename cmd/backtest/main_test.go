package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvys/predictipulse/internal/models"
)

func TestSplitSports(t *testing.T) {
	assert.Equal(t, []string{"nba", "nfl"}, splitSports(" NBA, ,nfl,"))
	assert.Nil(t, splitSports(""))
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, renderSummary(&buf, models.BacktestSummary{
		Trades: 3, Wins: 2, Losses: 1, WinRate: 66.67, PnL: 5, ROI: 0.5,
		Sharpe: 0.196, MaxDrawdown: -10, EndingBalance: 1005,
	}))

	out := buf.String()
	assert.Contains(t, out, "66.67")
	assert.Contains(t, out, "$+5.00")
	assert.Contains(t, out, "0.196")
	assert.Contains(t, out, "$1005.00")
}

func TestRenderTrades(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, renderTrades(&buf, []models.BacktestTrade{
		{Sport: "nba", Matchup: "Miami Heat at Denver Nuggets", Team: "Miami Heat",
			TrueProb: 0.55, MarketProb: 0.5, Edge: 5, Result: models.ResultWin, PnL: 10},
	}))

	out := buf.String()
	assert.Contains(t, out, "Miami Heat at Denver Nuggets")
	assert.Contains(t, out, "WIN")
	assert.Contains(t, out, "$+10.00")
}
