package kalshi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/solvys/predictipulse/internal/models"
)

// ErrInvalidOrder is returned before submission for malformed orders
var ErrInvalidOrder = errors.New("invalid order")

// Balance returns the available balance in dollars
func (c *Client) Balance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	if err := c.get(ctx, "/portfolio/balance", nil, &resp); err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return centsToDollars(resp.Balance), nil
}

// Positions returns open market positions with prices as probabilities
// and P&L in dollars
func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	var resp positionsResponse
	if err := c.get(ctx, "/portfolio/positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	positions := make([]models.Position, 0, len(resp.MarketPositions))
	for _, p := range resp.MarketPositions {
		side := strings.ToLower(p.Side)
		size := p.Position
		if size < 0 {
			size = -size
			if side == "" {
				side = "no"
			}
		}
		if side == "" {
			side = "yes"
		}

		positions = append(positions, models.Position{
			MarketID: p.Ticker,
			Side:     side,
			Size:     float64(size),
			AvgPrice: decimal.NewFromFloat(p.AvgPrice).Div(decimal.NewFromInt(100)).InexactFloat64(),
			PnL:      centsToDollars(p.Pnl),
		})
	}
	return positions, nil
}

// PlaceOrder submits a limit buy. Price is a probability and is sent in
// whole cents.
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	side := strings.ToLower(req.Side)
	if side != "yes" && side != "no" {
		return nil, fmt.Errorf("%w: side must be yes or no, got %q", ErrInvalidOrder, req.Side)
	}
	cents := probToCents(req.Price)
	if cents < 1 || cents > 99 {
		return nil, fmt.Errorf("%w: price %.4f outside 1-99 cents", ErrInvalidOrder, req.Price)
	}
	if req.Size < 1 {
		return nil, fmt.Errorf("%w: size must be positive", ErrInvalidOrder)
	}
	if req.MarketID == "" {
		return nil, fmt.Errorf("%w: market id is required", ErrInvalidOrder)
	}

	body := createOrderRequest{
		Ticker: req.MarketID,
		Side:   side,
		Type:   "limit",
		Action: "buy",
		Count:  req.Size,
	}
	if side == "yes" {
		body.YesPrice = &cents
	} else {
		body.NoPrice = &cents
	}

	var resp orderResponse
	if err := c.post(ctx, "/portfolio/orders", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	c.logger.Info().
		Str("ticker", req.MarketID).
		Str("side", side).
		Int("count", req.Size).
		Int("price_cents", cents).
		Str("order_id", resp.Order.OrderID).
		Msg("order placed")

	return &models.Order{
		ID:       resp.Order.OrderID,
		MarketID: req.MarketID,
		Side:     side,
		Price:    float64(cents) / 100,
		Size:     req.Size,
		Status:   resp.Order.Status,
	}, nil
}

// CancelOrder cancels a resting order
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidOrder)
	}
	if err := c.delete(ctx, "/portfolio/orders/"+url.PathEscape(orderID), nil); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return nil
}

// CheckConnection verifies credentials by fetching the balance
func (c *Client) CheckConnection(ctx context.Context) models.ConnectionStatus {
	balance, err := c.Balance(ctx)
	if err != nil {
		return models.ConnectionStatus{Connected: false, Error: err.Error()}
	}
	return models.ConnectionStatus{
		Connected: true,
		Balance:   &balance,
		Message:   "Kalshi API connected successfully",
	}
}
