package boltodds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solvys/predictipulse/internal/models"
)

// Handler receives each decoded batch from the stream
type Handler func(ctx context.Context, odds []*models.SharpOdds)

type subscribeMessage struct {
	Action  string              `json:"action"`
	Filters map[string][]string `json:"filters"`
}

func (c *Client) subscription() subscribeMessage {
	filters := make(map[string][]string)
	if len(c.config.Sports) > 0 {
		filters["sports"] = c.config.Sports
	}
	if len(c.config.Sportsbooks) > 0 {
		filters["sportsbooks"] = c.config.Sportsbooks
	}
	if len(c.config.Markets) > 0 {
		filters["markets"] = c.config.Markets
	}
	if len(c.config.Games) > 0 {
		filters["games"] = c.config.Games
	}
	return subscribeMessage{Action: "subscribe", Filters: filters}
}

// Stream connects to the websocket feed and calls handler for every batch of
// quotes until ctx is cancelled. Disconnects are logged and retried after
// the reconnect delay.
func (c *Client) Stream(ctx context.Context, handler Handler) error {
	for {
		err := c.streamOnce(ctx, handler)
		if ctx.Err() != nil {
			c.logger.Info().Msg("boltodds stream stopped")
			return nil
		}
		c.logger.Warn().
			Err(err).
			Dur("reconnect_in", c.config.ReconnectDelay).
			Msg("boltodds disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.config.ReconnectDelay):
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, handler Handler) error {
	u, err := url.Parse(c.config.WSURL)
	if err != nil {
		return fmt.Errorf("invalid websocket url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.config.APIKey)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: c.config.Timeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	_, ack, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read ack: %w", err)
	}
	c.logger.Info().Str("ack", string(ack)).Msg("boltodds connected")

	if err := conn.WriteJSON(c.subscription()); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Debug().Err(err).Msg("skipping undecodable message")
			continue
		}
		if odds := c.toSharpOdds(env.Data); len(odds) > 0 {
			handler(ctx, odds)
		}
	}
}
