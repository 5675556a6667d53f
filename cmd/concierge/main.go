package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clik-ai/concierge/internal/config"
	"github.com/clik-ai/concierge/internal/prompt"
	"github.com/clik-ai/concierge/internal/provider"
	anthropicprovider "github.com/clik-ai/concierge/internal/provider/anthropic"
	openaiprovider "github.com/clik-ai/concierge/internal/provider/openai"
	"github.com/clik-ai/concierge/internal/provider/scripted"
	"github.com/clik-ai/concierge/internal/relay"
	"github.com/clik-ai/concierge/internal/server"
	"github.com/clik-ai/concierge/internal/telemetry"
	"github.com/clik-ai/concierge/internal/tokens"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("concierge", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	promptBuilder, err := prompt.NewFromFile(cfg.Relay.ContextPath)
	if err != nil {
		log.Fatalf("Failed to load product context document: %v", err)
	}

	estimator, err := tokens.NewEstimator()
	if err != nil {
		log.Fatalf("Failed to initialize token estimator: %v", err)
	}

	upstream := buildProvider(cfg, logger)

	timeout, err := time.ParseDuration(cfg.Relay.UpstreamTimeout)
	if err != nil {
		log.Fatalf("Invalid relay.upstream_timeout %q: %v", cfg.Relay.UpstreamTimeout, err)
	}

	handler := relay.NewHandler(upstream, promptBuilder, estimator, relay.Settings{
		Model:           cfg.Relay.Model,
		MaxTokens:       cfg.Relay.MaxTokens,
		ContextBudget:   cfg.Relay.ContextBudget,
		UpstreamTimeout: timeout,
	})

	srv := server.New(cfg.Server.Port, cfg.Server.AllowedOrigin, logger)
	srv.Router.Post("/api/chat", handler.HandleChat)
	srv.Router.Get("/api/health", handleHealth)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildProvider selects the upstream from configuration. A missing
// credential yields a nil provider; the relay then answers every request
// with its configuration error instead of crashing at startup.
func buildProvider(cfg *config.Config, logger *slog.Logger) provider.Completer {
	switch cfg.Relay.Provider {
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			logger.Warn("anthropic api key not configured")
			return nil
		}
		var opts []anthropicprovider.ProviderOption
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropicprovider.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		return anthropicprovider.New(cfg.Anthropic.APIKey, opts...)
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			logger.Warn("openai api key not configured")
			return nil
		}
		var opts []openaiprovider.ProviderOption
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openaiprovider.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return openaiprovider.New(cfg.OpenAI.APIKey, opts...)
	case "scripted":
		// Credential-free canned replies for demos and local development.
		return scripted.New()
	default:
		logger.Warn("unknown relay provider", slog.String("provider", cfg.Relay.Provider))
		return nil
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
