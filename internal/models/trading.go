package models

import "time"

// TradeResult is the settlement state of a trade
type TradeResult string

const (
	ResultWin     TradeResult = "WIN"
	ResultLoss    TradeResult = "LOSS"
	ResultPending TradeResult = "PENDING"
)

// TradeSource separates simulated trades from venue-backed ones in the tracker
type TradeSource string

const (
	SourcePaper  TradeSource = "paper"
	SourceActual TradeSource = "actual"
)

// Valid reports whether s is a known source
func (s TradeSource) Valid() bool {
	return s == SourcePaper || s == SourceActual
}

// Opportunity is a scanned market with a modeled edge and a recommended stake.
// It is published once and then discarded.
type Opportunity struct {
	MarketID   string    `json:"market_id,omitempty"`
	Matchup    string    `json:"matchup"`
	Team       string    `json:"team"`
	Sport      string    `json:"sport"`
	TrueProb   float64   `json:"true_prob"`
	MarketProb float64   `json:"market_prob"`
	Edge       float64   `json:"edge"` // percentage points, signed
	KellyStake float64   `json:"kelly_stake"`
	Actionable bool      `json:"actionable"`
	Timestamp  time.Time `json:"timestamp"`
}

// Trade is a ledger entry. Simulated trades are settled immediately; venue
// positions stay PENDING until the venue settles them.
type Trade struct {
	ID         string      `json:"id"`
	Matchup    string      `json:"matchup"`
	Team       string      `json:"team"`
	Stake      float64     `json:"stake"`
	EntryPrice float64     `json:"entry_price"`
	TrueProb   float64     `json:"true_prob"`
	Edge       float64     `json:"edge"`
	Result     TradeResult `json:"result"`
	PnL        float64     `json:"pnl"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Stats is the dashboard summary of the engine state
type Stats struct {
	Bankroll        float64 `json:"bankroll"`
	InitialBankroll float64 `json:"initial_bankroll"`
	TotalPnL        float64 `json:"total_pnl"`
	Trades          int     `json:"trades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinRate         float64 `json:"win_rate"`
	AvgRR           float64 `json:"avg_rr"`
	Running         bool    `json:"running"`
	Mode            string  `json:"mode"`
}
