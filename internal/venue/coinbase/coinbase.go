// Package coinbase is a placeholder venue for Coinbase prediction markets.
// There is no public API yet, so every capability reports ErrNotAvailable.
package coinbase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/solvys/predictipulse/internal/gateway"
	"github.com/solvys/predictipulse/internal/models"
)

// Name is the venue name used in the registry
const Name = "coinbase"

const (
	msgMissingCredentials = "Missing API credentials"
	msgNotAvailable       = "Coinbase Prediction Markets API not yet available"
)

// Client is the placeholder venue
type Client struct {
	apiKey    string
	apiSecret string
	logger    zerolog.Logger
}

// NewClient creates a placeholder client. Credentials are only used to
// distinguish connection errors.
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) *Client {
	c := &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		logger:    logger.With().Str("component", "coinbase_client").Logger(),
	}
	if c.hasCredentials() {
		c.logger.Info().Msg("coinbase client initialized with credentials (API not yet available)")
	} else {
		c.logger.Warn().Msg("coinbase client initialized without credentials")
	}
	return c
}

func (c *Client) hasCredentials() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// Name returns the venue name
func (c *Client) Name() string {
	return Name
}

// ListItems lists nothing
func (c *Client) ListItems(ctx context.Context, filter models.MarketFilter) ([]models.MarketItem, error) {
	return nil, fmt.Errorf("failed to list markets: %w", gateway.ErrNotAvailable)
}

// Balance is not available
func (c *Client) Balance(ctx context.Context) (float64, error) {
	return 0, fmt.Errorf("failed to get balance: %w", gateway.ErrNotAvailable)
}

// Positions is not available
func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	return nil, fmt.Errorf("failed to get positions: %w", gateway.ErrNotAvailable)
}

// PlaceOrder is not available
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	c.logger.Warn().
		Str("market_id", req.MarketID).
		Str("side", req.Side).
		Float64("price", req.Price).
		Int("size", req.Size).
		Msg("place order called on unavailable venue")
	return nil, fmt.Errorf("failed to place order: %w", gateway.ErrNotAvailable)
}

// CheckConnection always reports disconnected
func (c *Client) CheckConnection(ctx context.Context) models.ConnectionStatus {
	if !c.hasCredentials() {
		return models.ConnectionStatus{Connected: false, Error: msgMissingCredentials}
	}
	return models.ConnectionStatus{
		Connected: false,
		Error:     msgNotAvailable,
		Message:   "Integration ready, awaiting Coinbase API release",
	}
}
