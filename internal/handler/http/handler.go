package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/internal/settings"
)

// Engine is the control surface of the trading engine
type Engine interface {
	Start()
	Stop()
	IsRunning() bool
	Mode() string
	Config() settings.Values
	Params() settings.Params
	UpdateConfig(updates settings.Values) error
	ResetConfig(values settings.Values) error
	Stats() models.Stats
	RecentTrades(limit int) []models.Trade
	CheckConnection(ctx context.Context) models.ConnectionStatus
	NextLogContext(ctx context.Context) (string, bool)
	NextOpportunityContext(ctx context.Context) (models.Opportunity, bool)
	NextTradeContext(ctx context.Context) (models.Trade, bool)
}

// PerformanceStore reads tracked performance and stores backtest runs
type PerformanceStore interface {
	RollingMetrics(ctx context.Context, days int, source models.TradeSource) (models.RollingMetrics, error)
	History(ctx context.Context, limit int, source models.TradeSource) ([]models.TrackedTrade, error)
	StoreBacktest(ctx context.Context, rec models.BacktestRecord) (models.BacktestRecord, error)
	ListBacktests(ctx context.Context, limit int) ([]models.BacktestRecord, error)
}

// Backtester runs a backtest request
type Backtester interface {
	Run(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error)
}

// Handler serves the dashboard API and event streams
type Handler struct {
	engine     Engine
	store      settings.Store
	perf       PerformanceStore
	backtester Backtester
	logger     zerolog.Logger

	now func() time.Time
}

// NewHandler creates the API handler
func NewHandler(engine Engine, store settings.Store, perf PerformanceStore, backtester Backtester, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:     engine,
		store:      store,
		perf:       perf,
		backtester: backtester,
		logger:     logger.With().Str("component", "http_handler").Logger(),
		now:        time.Now,
	}
}

// RegisterRoutes registers the API and stream routes on r
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/start", h.handleStart)
		r.Post("/stop", h.handleStop)
		r.Get("/status", h.handleStatus)
		r.Get("/stats", h.handleStats)
		r.Post("/uplink", h.handleUplink)
		r.Get("/trades", h.handleTrades)

		r.Get("/config", h.handleGetConfig)
		r.Post("/config", h.handleUpdateConfig)
		r.Post("/config/reset", h.handleResetConfig)

		r.Get("/performance", h.handlePerformance)
		r.Post("/backtest", h.handleBacktest)
		r.Get("/backtest/history", h.handleBacktestHistory)
	})

	r.Route("/stream", func(r chi.Router) {
		r.Get("/logs", h.handleStreamLogs)
		r.Get("/opportunities", h.handleStreamOpportunities)
		r.Get("/trades", h.handleStreamTrades)
	})
}

// handleStart handles POST /api/start
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.engine.Start()
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"running": h.engine.IsRunning(),
		"stats":   h.engine.Stats(),
	})
}

// handleStop handles POST /api/stop
func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"running": h.engine.IsRunning(),
		"stats":   h.engine.Stats(),
	})
}

// handleStatus handles GET /api/status
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"running": h.engine.IsRunning(),
		"mode":    h.engine.Mode(),
		"config":  h.engine.Config(),
		"stats":   h.engine.Stats(),
	})
}

// handleStats handles GET /api/stats
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.engine.Stats())
}

// handleUplink handles POST /api/uplink
func (h *Handler) handleUplink(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.engine.CheckConnection(r.Context()))
}

// handleTrades handles GET /api/trades?limit=N
func (h *Handler) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intQuery(w, r, "limit", 50)
	if !ok {
		return
	}
	h.jsonResponse(w, http.StatusOK, h.engine.RecentTrades(limit))
}

// handleGetConfig handles GET /api/config
func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	values, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load settings")
		h.errorResponse(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	h.jsonResponse(w, http.StatusOK, values)
}

// handleUpdateConfig handles POST /api/config
func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var updates settings.Values
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil && !errors.Is(err, io.EOF) {
		h.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.engine.UpdateConfig(updates); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Save(r.Context(), settings.Sanitize(updates)); err != nil {
		h.logger.Error().Err(err).Msg("failed to persist settings")
		h.errorResponse(w, http.StatusInternalServerError, "failed to persist settings")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"ok":     true,
		"config": h.engine.Config(),
	})
}

// handleResetConfig handles POST /api/config/reset
func (h *Handler) handleResetConfig(w http.ResponseWriter, r *http.Request) {
	values, err := h.store.Reset(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to reset settings")
		h.errorResponse(w, http.StatusInternalServerError, "failed to reset settings")
		return
	}

	if err := h.engine.ResetConfig(values); err != nil {
		h.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"ok":     true,
		"config": h.engine.Config(),
	})
}

func (h *Handler) intQuery(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		h.errorResponse(w, http.StatusBadRequest, key+" must be a positive integer")
		return 0, false
	}
	return v, true
}

// jsonResponse writes a JSON response
func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// errorResponse writes a JSON error response
func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}
