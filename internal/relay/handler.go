// Package relay implements POST /api/chat: validate the transcript, attach
// the fixed system instruction, forward to the upstream provider, and
// re-emit its deltas as server-sent events.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clik-ai/concierge/internal/domain"
	"github.com/clik-ai/concierge/internal/prompt"
	"github.com/clik-ai/concierge/internal/provider"
	"github.com/clik-ai/concierge/internal/server"
	"github.com/clik-ai/concierge/internal/tokens"
)

// Settings are the fixed per-deployment knobs of the relay.
type Settings struct {
	Model           string
	MaxTokens       int
	ContextBudget   int
	UpstreamTimeout time.Duration
}

// Handler bridges one chat request to one upstream streaming call. It holds
// no per-conversation state; every request is independent.
type Handler struct {
	provider  provider.Completer
	prompt    *prompt.Builder
	estimator *tokens.Estimator
	settings  Settings
}

// NewHandler wires the relay. provider may be nil when no credential is
// configured; requests then fail fast with a configuration error.
func NewHandler(p provider.Completer, pb *prompt.Builder, est *tokens.Estimator, settings Settings) *Handler {
	if settings.UpstreamTimeout <= 0 {
		settings.UpstreamTimeout = 60 * time.Second
	}
	return &Handler{
		provider:  p,
		prompt:    pb,
		estimator: est,
		settings:  settings,
	}
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	logger := slog.Default()
	requestID := server.GetRequestID(r.Context())

	if h.provider == nil {
		writeJSONError(w, http.StatusInternalServerError, "API key not configured")
		return
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.AddError(r.Context(), err)
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "Messages array required")
		return
	}

	providerName := h.provider.Name()
	server.AddLogField(r.Context(), "provider", providerName)
	server.AddLogField(r.Context(), "model", h.settings.Model)

	system := h.prompt.System()
	messages := req.Messages
	if h.estimator != nil && h.settings.ContextBudget > 0 {
		messages = h.estimator.TrimToBudget(system, messages, h.settings.ContextBudget)
		if dropped := len(req.Messages) - len(messages); dropped > 0 {
			server.AddLogField(r.Context(), "trimmed_messages", fmt.Sprintf("%d", dropped))
		}
	}

	// Bound the upstream call so a stalled provider cannot hold the
	// connection open indefinitely.
	ctx, cancel := context.WithTimeout(r.Context(), h.settings.UpstreamTimeout)
	defer cancel()

	events, err := h.provider.Stream(ctx, &provider.Request{
		System:    system,
		Messages:  messages,
		Model:     h.settings.Model,
		MaxTokens: h.settings.MaxTokens,
	})
	if err != nil {
		logger.Error("failed to open upstream stream",
			slog.String("request_id", requestID),
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		server.AddError(r.Context(), err)
		writeJSONError(w, http.StatusBadGateway, "Upstream request failed")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		server.AddError(r.Context(), fmt.Errorf("streaming not supported"))
		writeJSONError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// Headers are committed from here on: failures go in-band, one frame
	// per delta, flushed immediately so nothing buffers beyond framing.
	var emitted int
	for event := range events {
		if event.Err != nil {
			logger.Error("upstream stream failed",
				slog.String("request_id", requestID),
				slog.String("provider", providerName),
				slog.String("error", event.Err.Error()),
			)
			server.AddError(r.Context(), event.Err)
			writeFrame(w, flusher, domain.ErrorFrame{Error: "Stream error"})
			return
		}
		emitted += len(event.Delta)
		writeFrame(w, flusher, domain.DeltaFrame{Text: event.Delta})
	}

	// A clean channel close after cancellation means the timeout fired,
	// not that the reply finished.
	if ctx.Err() != nil {
		server.AddError(r.Context(), ctx.Err())
		writeFrame(w, flusher, domain.ErrorFrame{Error: "Stream error"})
		return
	}

	fmt.Fprintf(w, "data: %s\n\n", domain.DoneSentinel)
	flusher.Flush()

	server.AddLogField(r.Context(), "response_chars", fmt.Sprintf("%d", emitted))
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(domain.ErrorFrame{Error: msg})
}
