// Package kalshi is a REST client for the Kalshi exchange. It serves as both a
// market data source and an execution venue.
package kalshi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Name is the venue name used in the registry and in trade ids
const Name = "kalshi"

// DefaultBaseURL is the production trading API
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

// Client provides access to the Kalshi REST API
type Client struct {
	baseURL    string
	basePath   string // path prefix of baseURL, part of every signed path
	signer     Signer
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// Option configures a Client
type Option func(*Client)

// NewClient creates a client. A nil signer sends unsigned requests, which
// only public market data endpoints accept.
func NewClient(baseURL string, signer Signer, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var basePath string
	if u, err := url.Parse(baseURL); err == nil {
		basePath = strings.TrimRight(u.Path, "/")
	}

	c := &Client{
		baseURL:  baseURL,
		basePath: basePath,
		signer:   signer,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:      rate.NewLimiter(rate.Limit(10), 10),
		logger:       zerolog.Nop(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables it.
func WithRateLimit(perSec float64) Option {
	return func(c *Client) {
		if perSec <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), max(1, int(perSec)))
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "kalshi_client").Logger()
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Name returns the venue name
func (c *Client) Name() string {
	return Name
}
