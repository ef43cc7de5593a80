package models

import "time"

// DailyPnL is one day bucket of the rolling metrics
type DailyPnL struct {
	Date   string  `json:"date"`
	PnL    float64 `json:"pnl"`
	Trades int     `json:"trades"`
}

// RollingMetrics aggregates tracked trades over a trailing window
type RollingMetrics struct {
	Source  TradeSource `json:"source"`
	Days    int         `json:"days"`
	Trades  int         `json:"trades"`
	Wins    int         `json:"wins"`
	Losses  int         `json:"losses"`
	PnL     float64     `json:"pnl"`
	WinRate float64     `json:"win_rate"`
	ROI     float64     `json:"roi"`
	AvgEdge float64     `json:"avg_edge"`
	Daily   []DailyPnL  `json:"daily"`
}

// TrackedTrade is a trade row as stored by the performance tracker
type TrackedTrade struct {
	ID        string      `json:"id"`
	Source    TradeSource `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	PnL       float64     `json:"pnl"`
	Stake     float64     `json:"stake"`
	Edge      float64     `json:"edge"`
	Result    TradeResult `json:"result"`
	Matchup   string      `json:"matchup"`
	Team      string      `json:"team"`
}

// BacktestRequest configures a backtest run
type BacktestRequest struct {
	Sports          []string `json:"sports"`
	StartDate       string   `json:"start_date"` // YYYY-MM-DD
	EndDate         string   `json:"end_date"`   // YYYY-MM-DD
	Stake           float64  `json:"stake"`
	EdgeThreshold   float64  `json:"edge_threshold"`
	StartingBalance float64  `json:"starting_balance"`
}

// BacktestTrade is a single simulated bet in a backtest
type BacktestTrade struct {
	ID         string      `json:"id"`
	Sport      string      `json:"sport"`
	Matchup    string      `json:"matchup"`
	Team       string      `json:"team"`
	Stake      float64     `json:"stake"`
	TrueProb   float64     `json:"true_prob"`
	MarketProb float64     `json:"market_prob"`
	Edge       float64     `json:"edge"`
	Result     TradeResult `json:"result"`
	PnL        float64     `json:"pnl"`
	Timestamp  time.Time   `json:"timestamp"`
}

// BacktestSummary holds the aggregate results of a backtest
type BacktestSummary struct {
	Trades        int     `json:"trades"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	PnL           float64 `json:"pnl"`
	ROI           float64 `json:"roi"`
	Sharpe        float64 `json:"sharpe"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	EndingBalance float64 `json:"ending_balance"`
}

// BacktestResult is the full output of a backtest run
type BacktestResult struct {
	Summary BacktestSummary `json:"summary"`
	Trades  []BacktestTrade `json:"trades"`
}

// BacktestRecord is a stored backtest summary
type BacktestRecord struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Sports    []string        `json:"sports"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Summary   BacktestSummary `json:"summary"`
}
