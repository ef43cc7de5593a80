package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// stream writes server-sent events until the client goes away. next blocks
// until a payload is available or ctx is done.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, feed string, next func(ctx context.Context) (any, bool)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errorResponse(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug().Str("feed", feed).Str("remote", r.RemoteAddr).Msg("stream opened")
	defer h.logger.Debug().Str("feed", feed).Str("remote", r.RemoteAddr).Msg("stream closed")

	ctx := r.Context()
	for ctx.Err() == nil {
		payload, ok := next(ctx)
		if !ok || ctx.Err() != nil {
			continue
		}

		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error().Err(err).Str("feed", feed).Msg("failed to encode event")
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

// handleStreamLogs handles GET /stream/logs. Each event is {"log": "..."}.
func (h *Handler) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "logs", func(ctx context.Context) (any, bool) {
		line, ok := h.engine.NextLogContext(ctx)
		if !ok {
			return nil, false
		}
		return map[string]string{"log": line}, true
	})
}

// handleStreamOpportunities handles GET /stream/opportunities
func (h *Handler) handleStreamOpportunities(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "opportunities", func(ctx context.Context) (any, bool) {
		return h.engine.NextOpportunityContext(ctx)
	})
}

// handleStreamTrades handles GET /stream/trades
func (h *Handler) handleStreamTrades(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "trades", func(ctx context.Context) (any, bool) {
		return h.engine.NextTradeContext(ctx)
	})
}
