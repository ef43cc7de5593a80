// Package boltodds ingests sportsbook odds from BoltOdds, both as a REST
// snapshot and as a websocket stream.
package boltodds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"golang.org/x/time/rate"

	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/pkg/kelly"
)

// Default endpoints
const (
	DefaultBaseURL = "https://spro.agency/api"
	DefaultWSURL   = "wss://spro.agency/api"
)

// Config holds client settings. Empty filters mean everything.
type Config struct {
	APIKey         string
	BaseURL        string
	WSURL          string
	Sports         []string
	Sportsbooks    []string
	Markets        []string
	Games          []string
	Timeout        time.Duration
	ReconnectDelay time.Duration
	RatePerSec     float64
}

// Client talks to the BoltOdds REST and websocket APIs
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
	logger     zerolog.Logger
}

// NewClient creates a BoltOdds client
func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.WSURL == "" {
		config.WSURL = DefaultWSURL
	}
	if len(config.Sports) == 0 {
		config.Sports = []string{"NBA", "NFL", "MLB", "NHL"}
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 5 * time.Second
	}
	if config.RatePerSec <= 0 {
		config.RatePerSec = 2
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RatePerSec), 1),
		now:        time.Now,
		logger:     logger.With().Str("component", "boltodds_client").Logger(),
	}
}

// Name identifies the feed in logs
func (c *Client) Name() string {
	return "boltodds"
}

// quote is one book's prices for one market of one game
type quote struct {
	Game       string    `json:"game"`
	GameID     string    `json:"game_id"`
	Sport      string    `json:"sport"`
	Sportsbook string    `json:"sportsbook"`
	Market     string    `json:"market"`
	Timestamp  time.Time `json:"timestamp"`
	Outcomes   []struct {
		Name string `json:"name"`
		Odds any    `json:"odds"` // American odds, number or string
	} `json:"outcomes"`
}

type envelope struct {
	Action string  `json:"action"`
	Data   []quote `json:"data"`
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return nil
}

// Info returns the account and feed information document
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	if err := c.getJSON(ctx, "get_info", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// FetchMarkets returns a snapshot of current quotes as sharp odds
func (c *Client) FetchMarkets(ctx context.Context) ([]*models.SharpOdds, error) {
	params := url.Values{}
	if len(c.config.Sports) > 0 {
		params.Set("sports", strings.Join(c.config.Sports, ","))
	}
	if len(c.config.Sportsbooks) > 0 {
		params.Set("sportsbooks", strings.Join(c.config.Sportsbooks, ","))
	}

	var env envelope
	if err := c.getJSON(ctx, "get_markets", params, &env); err != nil {
		return nil, err
	}

	odds := c.toSharpOdds(env.Data)
	c.logger.Debug().
		Int("quotes", len(env.Data)).
		Int("odds", len(odds)).
		Msg("fetched market snapshot")
	return odds, nil
}

// toSharpOdds flattens quotes into one entry per outcome. Outcomes with
// unusable prices are skipped.
func (c *Client) toSharpOdds(quotes []quote) []*models.SharpOdds {
	now := c.now()
	var out []*models.SharpOdds
	for _, q := range quotes {
		ts := q.Timestamp
		if ts.IsZero() {
			ts = now
		}
		eventID := q.GameID
		if eventID == "" {
			eventID = q.Game
		}
		market := q.Market
		if market == "" {
			market = "moneyline"
		}

		for _, o := range q.Outcomes {
			american, err := cast.ToFloat64E(o.Odds)
			if err != nil || american == 0 || o.Name == "" {
				continue
			}
			out = append(out, &models.SharpOdds{
				ID:           uuid.New(),
				EventID:      eventID,
				EventName:    q.Game,
				Sport:        strings.ToUpper(q.Sport),
				Market:       market,
				Selection:    o.Name,
				Book:         q.Sportsbook,
				DecimalPrice: kelly.AmericanToDecimal(american),
				Timestamp:    ts,
			})
		}
	}
	return out
}
