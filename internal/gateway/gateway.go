// Package gateway defines the capability interfaces the engine consumes:
// market data sources, execution venues, and the probability model.
package gateway

//go:generate mockgen -source=gateway.go -destination=../mocks/mock_gateway.go -package=mocks

import (
	"context"
	"errors"

	"github.com/solvys/predictipulse/internal/models"
)

// ErrNotAvailable is returned by venues that cannot serve a capability
var ErrNotAvailable = errors.New("venue not available")

// MarketDataSource lists current tradable items with an implied probability
type MarketDataSource interface {
	Name() string
	ListItems(ctx context.Context, filter models.MarketFilter) ([]models.MarketItem, error)
}

// ExecutionVenue is an account on a prediction-market venue
type ExecutionVenue interface {
	Name() string
	Balance(ctx context.Context) (float64, error)
	Positions(ctx context.Context) ([]models.Position, error)
	PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)
	CheckConnection(ctx context.Context) models.ConnectionStatus
}

// ProbabilityModel supplies a modeled true probability for a market item.
// ok is false when the model has no view on the item.
type ProbabilityModel interface {
	TrueProbability(ctx context.Context, item models.MarketItem) (prob float64, ok bool)
}
