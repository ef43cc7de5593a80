package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SharpOdds represents a single sportsbook quote for one selection
type SharpOdds struct {
	ID           uuid.UUID       `json:"id"`
	EventID      string          `json:"event_id"`
	EventName    string          `json:"event_name"`
	Sport        string          `json:"sport"`
	Market       string          `json:"market"`
	Selection    string          `json:"selection"`
	Book         string          `json:"book"`
	DecimalPrice decimal.Decimal `json:"decimal_price"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ModeledProbability is the vig-free consensus probability for a selection
type ModeledProbability struct {
	ID          uuid.UUID `json:"id"`
	EventID     string    `json:"event_id"`
	EventName   string    `json:"event_name"`
	Sport       string    `json:"sport"`
	Market      string    `json:"market"`
	Selection   string    `json:"selection"`
	Probability float64   `json:"probability"` // 0-1
	Books       int       `json:"books"`       // number of books in the consensus
	Timestamp   time.Time `json:"timestamp"`
	ModeledAt   time.Time `json:"modeled_at"`
}

// ConsensusParams holds parameters for the sharp consensus model
type ConsensusParams struct {
	MinBooks int           // selections quoted by fewer books are dropped
	MaxAge   time.Duration // quotes older than this are ignored (0 disables)
}

// KafkaSharpOddsMessage represents a batch of sharp quotes on the odds topic
type KafkaSharpOddsMessage struct {
	OddsData  []SharpOdds `json:"odds_data"`
	Timestamp time.Time   `json:"timestamp"`
	BatchID   string      `json:"batch_id"`
}
