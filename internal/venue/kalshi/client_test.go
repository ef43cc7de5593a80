package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvys/predictipulse/internal/gateway"
	"github.com/solvys/predictipulse/internal/models"
)

var (
	_ gateway.ExecutionVenue   = (*Client)(nil)
	_ gateway.MarketDataSource = (*Client)(nil)
)

// testClientSetup is a helper struct to hold test dependencies
type testClientSetup struct {
	client *Client
	server *httptest.Server
	mux    *http.ServeMux
	key    *rsa.PrivateKey
}

func setupTestClient(t *testing.T) *testClientSetup {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer, err := NewRSASigner("key-123", key)
	require.NoError(t, err)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)

	client := NewClient(server.URL+"/trade-api/v2", signer,
		WithRetries(2, time.Millisecond),
		WithRateLimit(0),
		WithLogger(zerolog.Nop()),
	)

	return &testClientSetup{client: client, server: server, mux: mux, key: key}
}

func (s *testClientSetup) cleanup() {
	s.server.Close()
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

// TestNewClient tests client construction with various options
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("", nil)

		assert.Equal(t, DefaultBaseURL, c.baseURL)
		assert.Equal(t, "/trade-api/v2", c.basePath)
		assert.Equal(t, 10*time.Second, c.httpClient.Timeout)
		assert.Equal(t, 3, c.maxRetries)
		assert.Equal(t, time.Second, c.retryBackoff)
		assert.Equal(t, Name, c.Name())
	})

	t.Run("with options", func(t *testing.T) {
		hc := &http.Client{Timeout: 3 * time.Second}
		c := NewClient("https://demo-api.kalshi.co/trade-api/v2/", nil,
			WithHTTPClient(hc),
			WithRetries(5, 2*time.Second),
			WithTimeout(15*time.Second),
		)

		assert.Equal(t, "https://demo-api.kalshi.co/trade-api/v2", c.baseURL)
		assert.Same(t, hc, c.httpClient)
		assert.Equal(t, 15*time.Second, c.httpClient.Timeout)
		assert.Equal(t, 5, c.maxRetries)
	})
}

// TestListItems_SportsEvents tests event filtering and market conversion
func TestListItems_SportsEvents(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	setup.mux.HandleFunc("/trade-api/v2/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Equal(t, "200", r.URL.Query().Get("limit"))
		writeJSON(t, w, eventsResponse{Events: []event{
			{EventTicker: "KXNBAGAME-LAL", Title: "NBA: Lakers at Celtics", Category: "Sports"},
			{EventTicker: "KXFED", Title: "Fed rate decision", Category: "Economics"},
			{EventTicker: "KXMLB-WS", Title: "MLB World Series winner", Category: "Sports"},
			{EventTicker: "KXSB", Title: "Super Bowl champion", Category: "Sports"},
		}})
	})
	setup.mux.HandleFunc("/trade-api/v2/markets", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("event_ticker") {
		case "KXNBAGAME-LAL":
			writeJSON(t, w, marketsResponse{Markets: []market{{
				Ticker:    "KXNBAGAME-LAL-LAL",
				Title:     "Lakers at Celtics",
				Subtitle:  "Lakers",
				YesAsk:    42,
				Volume:    1200,
				CloseTime: "2025-01-13T03:00:00Z",
			}}})
		case "KXSB":
			writeJSON(t, w, marketsResponse{Markets: []market{{
				Ticker: "KXSB-KC", Title: "Super Bowl champion", YesSubTitle: "Chiefs", YesAsk: 18,
			}}})
		default:
			t.Errorf("unexpected event ticker %q", r.URL.Query().Get("event_ticker"))
		}
	})

	items, err := setup.client.ListItems(context.Background(), models.MarketFilter{Categories: []string{"nba", "nfl"}})

	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "KXNBAGAME-LAL-LAL", items[0].ID)
	assert.Equal(t, "Lakers at Celtics", items[0].Label)
	assert.Equal(t, "Lakers", items[0].Selection)
	assert.Equal(t, 0.42, items[0].ImpliedProb)
	assert.Equal(t, 1200.0, items[0].Volume)
	assert.Equal(t, "NBA", items[0].Category)
	assert.Equal(t, time.Date(2025, 1, 13, 3, 0, 0, 0, time.UTC), items[0].CloseTime.UTC())

	assert.Equal(t, "Chiefs", items[1].Selection)
	assert.Equal(t, "Sports", items[1].Category)
}

// TestListItems_Limit tests the item cap
func TestListItems_Limit(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	setup.mux.HandleFunc("/trade-api/v2/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, eventsResponse{Events: []event{{EventTicker: "E1", Title: "NHL game"}}})
	})
	setup.mux.HandleFunc("/trade-api/v2/markets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, marketsResponse{Markets: []market{{Ticker: "A"}, {Ticker: "B"}, {Ticker: "C"}}})
	})

	items, err := setup.client.ListItems(context.Background(), models.MarketFilter{Limit: 2})

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

// TestSignedHeaders tests that requests carry a verifiable RSA-PSS signature
func TestSignedHeaders(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	setup.mux.HandleFunc("/trade-api/v2/portfolio/balance", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get(HeaderAccessKey))

		ts := r.Header.Get(HeaderAccessTimestamp)
		sig, err := base64.StdEncoding.DecodeString(r.Header.Get(HeaderAccessSignature))
		assert.NoError(t, err)

		hashed := sha256.Sum256([]byte(ts + http.MethodGet + "/trade-api/v2/portfolio/balance"))
		err = rsa.VerifyPSS(&setup.key.PublicKey, crypto.SHA256, hashed[:], sig,
			&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
		assert.NoError(t, err, "signature must cover timestamp, method and full path")

		writeJSON(t, w, balanceResponse{Balance: 12345})
	})

	balance, err := setup.client.Balance(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 123.45, balance)
}

// TestPositions tests position conversion
func TestPositions(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	setup.mux.HandleFunc("/trade-api/v2/portfolio/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, positionsResponse{MarketPositions: []marketPosition{
			{Ticker: "NBA-LAL", Position: 10, AvgPrice: 42, Pnl: 123},
			{Ticker: "NFL-KC", Position: -4, AvgPrice: 61, Pnl: -250},
		}})
	})

	positions, err := setup.client.Positions(context.Background())

	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, models.Position{MarketID: "NBA-LAL", Side: "yes", Size: 10, AvgPrice: 0.42, PnL: 1.23}, positions[0])
	assert.Equal(t, models.Position{MarketID: "NFL-KC", Side: "no", Size: 4, AvgPrice: 0.61, PnL: -2.5}, positions[1])
}

// TestPlaceOrder tests the order payload
func TestPlaceOrder(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	setup.mux.HandleFunc("/trade-api/v2/portfolio/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(raw, &body))

		assert.Equal(t, "NBA-LAL", body["ticker"])
		assert.Equal(t, "yes", body["side"])
		assert.Equal(t, "limit", body["type"])
		assert.Equal(t, "buy", body["action"])
		assert.Equal(t, 100.0, body["count"])
		assert.Equal(t, 42.0, body["yes_price"])
		assert.NotContains(t, body, "no_price")

		writeJSON(t, w, map[string]any{"order": map[string]any{"order_id": "ord-1", "status": "resting"}})
	})

	order, err := setup.client.PlaceOrder(context.Background(), models.OrderRequest{
		MarketID: "NBA-LAL", Side: "YES", Price: 0.42, Size: 100,
	})

	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, "resting", order.Status)
	assert.Equal(t, 0.42, order.Price)
}

// TestPlaceOrder_Invalid tests local validation
func TestPlaceOrder_Invalid(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/trade-api/v2", nil)

	tests := []struct {
		name string
		req  models.OrderRequest
	}{
		{"bad side", models.OrderRequest{MarketID: "A", Side: "maybe", Price: 0.5, Size: 1}},
		{"zero price", models.OrderRequest{MarketID: "A", Side: "yes", Price: 0, Size: 1}},
		{"full price", models.OrderRequest{MarketID: "A", Side: "no", Price: 1, Size: 1}},
		{"zero size", models.OrderRequest{MarketID: "A", Side: "yes", Price: 0.5, Size: 0}},
		{"no market", models.OrderRequest{Side: "yes", Price: 0.5, Size: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.PlaceOrder(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

// TestCancelOrder tests order cancellation
func TestCancelOrder(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	var called atomic.Bool
	setup.mux.HandleFunc("/trade-api/v2/portfolio/orders/ord-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		called.Store(true)
		writeJSON(t, w, map[string]any{"order": map[string]any{"order_id": "ord-1", "status": "canceled"}})
	})

	require.NoError(t, setup.client.CancelOrder(context.Background(), "ord-1"))
	assert.True(t, called.Load())
	assert.ErrorIs(t, setup.client.CancelOrder(context.Background(), ""), ErrInvalidOrder)
}

// TestRetry_ServerErrorThenSuccess tests retry on 5xx
func TestRetry_ServerErrorThenSuccess(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	var calls atomic.Int32
	setup.mux.HandleFunc("/trade-api/v2/portfolio/balance", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, balanceResponse{Balance: 500})
	})

	balance, err := setup.client.Balance(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5.0, balance)
	assert.Equal(t, int32(2), calls.Load())
}

// TestRetry_ClientErrorNotRetried tests that 4xx fails immediately
func TestRetry_ClientErrorNotRetried(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	var calls atomic.Int32
	setup.mux.HandleFunc("/trade-api/v2/portfolio/balance", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := setup.client.Balance(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.False(t, apiErr.IsRetryable())
	assert.Equal(t, int32(1), calls.Load())
}

// TestRetry_Exhausted tests the retry cap
func TestRetry_Exhausted(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	var calls atomic.Int32
	setup.mux.HandleFunc("/trade-api/v2/portfolio/balance", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := setup.client.Balance(context.Background())

	assert.ErrorContains(t, err, "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

// TestCheckConnection tests connectivity reporting
func TestCheckConnection(t *testing.T) {
	setup := setupTestClient(t)
	defer setup.cleanup()

	var failing atomic.Bool
	setup.mux.HandleFunc("/trade-api/v2/portfolio/balance", func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, balanceResponse{Balance: 2500})
	})

	status := setup.client.CheckConnection(context.Background())
	assert.True(t, status.Connected)
	require.NotNil(t, status.Balance)
	assert.Equal(t, 25.0, *status.Balance)
	assert.Equal(t, "Kalshi API connected successfully", status.Message)

	failing.Store(true)
	status = setup.client.CheckConnection(context.Background())
	assert.False(t, status.Connected)
	assert.Contains(t, status.Error, "401")
}
