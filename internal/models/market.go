package models

import "time"

// MarketItem is a tradable contract with the venue's implied probability
type MarketItem struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Selection   string    `json:"selection,omitempty"` // team or side the YES contract pays on
	ImpliedProb float64   `json:"implied_prob"`
	Volume      float64   `json:"volume"`
	Category    string    `json:"category"`
	CloseTime   time.Time `json:"close_time"`
}

// MarketFilter narrows a market data listing
type MarketFilter struct {
	Categories []string
	Status     string
	Limit      int
}

// Position is an open venue position
type Position struct {
	MarketID string  `json:"market_id"`
	Side     string  `json:"side"`
	Size     float64 `json:"size"`
	AvgPrice float64 `json:"avg_price"` // 0-1
	PnL      float64 `json:"pnl"`       // dollars
}

// OrderRequest is a limit order in probability/contract terms
type OrderRequest struct {
	MarketID string  `json:"market_id"`
	Side     string  `json:"side"`  // yes or no
	Price    float64 `json:"price"` // 0-1
	Size     int     `json:"size"`  // contracts
}

// Order is the venue's acknowledgement of an OrderRequest
type Order struct {
	ID       string  `json:"id"`
	MarketID string  `json:"market_id"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Size     int     `json:"size"`
	Status   string  `json:"status"`
}

// ConnectionStatus reports venue connectivity
type ConnectionStatus struct {
	Connected bool     `json:"connected"`
	Balance   *float64 `json:"balance,omitempty"`
	Message   string   `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
}
