package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axoninnova/axon-gateway/internal/api"
	"github.com/axoninnova/axon-gateway/internal/config"
	"github.com/axoninnova/axon-gateway/internal/events"
	"github.com/axoninnova/axon-gateway/internal/gateway"
	"github.com/axoninnova/axon-gateway/internal/identity"
	"github.com/axoninnova/axon-gateway/internal/notifications"
	"github.com/axoninnova/axon-gateway/internal/provider"
	"github.com/axoninnova/axon-gateway/internal/provider/bedrock"
	"github.com/axoninnova/axon-gateway/internal/provider/mock"
	"github.com/axoninnova/axon-gateway/internal/provider/openaicompat"
	"github.com/axoninnova/axon-gateway/internal/quota"
	"github.com/axoninnova/axon-gateway/internal/registry"
	"github.com/axoninnova/axon-gateway/internal/secrets"
	"github.com/axoninnova/axon-gateway/internal/telemetry"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	slog.Info("starting AxonNexus Gateway", "addr", cfg.Addr, "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, "axon-gateway", version, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "error", err)
		}
	}()

	if cfg.SecretsName != "" {
		store, err := secrets.NewAWSSecretsManager(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Error("failed to initialize secrets manager", "error", err)
			os.Exit(1)
		}
		if err := secrets.ApplyProviderKeys(ctx, store, cfg.SecretsName, cfg); err != nil {
			slog.Error("failed to load provider keys", "error", err)
			os.Exit(1)
		}
		slog.Info("provider keys loaded from secrets manager", "secret", cfg.SecretsName)
	}

	entries := registry.DefaultEntries()
	if cfg.ModelsFile != "" {
		entries, err = registry.LoadFile(cfg.ModelsFile)
		if err != nil {
			slog.Error("failed to load models file", "file", cfg.ModelsFile, "error", err)
			os.Exit(1)
		}
		slog.Info("model table loaded", "file", cfg.ModelsFile, "models", len(entries))
	}
	reg := registry.New(entries, cfg.Capabilities())

	providers := map[string]provider.Adapter{
		"mock": mock.New(),
	}

	if cfg.NVIDIAAPIKey != "" {
		providers["nvidia"] = openaicompat.NewNVIDIA(cfg.NVIDIAAPIKey)
		slog.Info("registered provider", "provider", "nvidia")
	}
	if cfg.OpenAIAPIKey != "" {
		providers["openai"] = openaicompat.NewOpenAI(cfg.OpenAIAPIKey)
		slog.Info("registered provider", "provider", "openai")
	}
	if cfg.GroqAPIKey != "" {
		providers["groq"] = openaicompat.NewGroq(cfg.GroqAPIKey)
		slog.Info("registered provider", "provider", "groq")
	}
	if cfg.MistralAPIKey != "" {
		providers["mistral"] = openaicompat.NewMistral(cfg.MistralAPIKey)
		slog.Info("registered provider", "provider", "mistral")
	}
	if cfg.OpenRouterAPIKey != "" {
		providers["openrouter"] = openaicompat.NewOpenRouter(cfg.OpenRouterAPIKey)
		slog.Info("registered provider", "provider", "openrouter")
	}
	if cfg.BedrockEnabled && cfg.AWSRegion != "" {
		bedrockProvider, err := bedrock.New(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Error("failed to initialize bedrock provider", "error", err)
			os.Exit(1)
		}
		providers["bedrock"] = bedrockProvider
		slog.Info("registered provider", "provider", "bedrock", "region", cfg.AWSRegion)
	}

	var notifier notifications.Notifier
	if cfg.AlertTopicARN != "" {
		notifier, err = notifications.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.AlertTopicARN)
		if err != nil {
			slog.Error("failed to initialize SNS notifier", "error", err)
			os.Exit(1)
		}
		slog.Info("quota alerts enabled", "topic", cfg.AlertTopicARN)
	}

	var publisher events.Publisher
	if cfg.UsageQueueURL != "" {
		publisher, err = events.NewSQSPublisher(ctx, cfg.AWSRegion, cfg.UsageQueueURL)
		if err != nil {
			slog.Error("failed to initialize SQS publisher", "error", err)
			os.Exit(1)
		}
		slog.Info("usage events enabled", "queue", cfg.UsageQueueURL)
	}

	dispatcher := gateway.New(gateway.Config{
		Identifier: identity.NewIdentifier(cfg.TestAPIKey),
		Quotas:     quota.NewManager(),
		Registry:   reg,
		Providers:  providers,
		Notifier:   notifier,
		Publisher:  publisher,
		Logger:     slog.Default(),
	})

	handler := api.NewHandler(api.HandlerConfig{
		Dispatcher: dispatcher,
		Registry:   reg,
		Version:    version,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
