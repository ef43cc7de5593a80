package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/solvys/predictipulse/internal/backtest"
	"github.com/solvys/predictipulse/internal/models"
)

// BacktestResponse is a backtest result with the id it was stored under
type BacktestResponse struct {
	ID string `json:"id"`
	*models.BacktestResult
}

// handlePerformance handles GET /api/performance?source=paper|actual
func (h *Handler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	source := models.TradeSource(r.URL.Query().Get("source"))
	if source == "" {
		source = models.SourcePaper
	}
	if !source.Valid() {
		h.errorResponse(w, http.StatusBadRequest, "source must be paper or actual")
		return
	}

	metrics, err := h.perf.RollingMetrics(r.Context(), 7, source)
	if err != nil {
		h.logger.Error().Err(err).Str("source", string(source)).Msg("failed to compute rolling metrics")
		h.errorResponse(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}

	history, err := h.perf.History(r.Context(), 30, source)
	if err != nil {
		h.logger.Error().Err(err).Str("source", string(source)).Msg("failed to load trade history")
		h.errorResponse(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"metrics": metrics,
		"history": history,
	})
}

// handleBacktest handles POST /api/backtest. Unset fields take defaults and
// the sports default to the configured ones.
func (h *Handler) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req models.BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req = backtest.WithDefaults(req, h.engine.Params().Sports, h.now())

	result, err := h.backtester.Run(r.Context(), req)
	switch {
	case errors.Is(err, backtest.ErrInvalidRange), errors.Is(err, backtest.ErrNoSports):
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Strs("sports", req.Sports).Msg("backtest failed")
		h.errorResponse(w, http.StatusBadGateway, "backtest failed: "+err.Error())
		return
	}

	rec, err := h.perf.StoreBacktest(r.Context(), models.BacktestRecord{
		Sports:    req.Sports,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Summary:   result.Summary,
	})
	if err != nil {
		// the run itself succeeded; report it without an id
		h.logger.Error().Err(err).Msg("failed to store backtest")
		rec.ID = ""
	}

	h.jsonResponse(w, http.StatusOK, BacktestResponse{ID: rec.ID, BacktestResult: result})
}

// handleBacktestHistory handles GET /api/backtest/history
func (h *Handler) handleBacktestHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.perf.ListBacktests(r.Context(), 20)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list backtests")
		h.errorResponse(w, http.StatusInternalServerError, "failed to list backtests")
		return
	}
	h.jsonResponse(w, http.StatusOK, records)
}
