package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/prospect/internal/agents"
	"github.com/MikeSquared-Agency/prospect/internal/anthropic"
	"github.com/MikeSquared-Agency/prospect/internal/api"
	"github.com/MikeSquared-Agency/prospect/internal/config"
	"github.com/MikeSquared-Agency/prospect/internal/events"
	"github.com/MikeSquared-Agency/prospect/internal/notify"
	"github.com/MikeSquared-Agency/prospect/internal/pipeline"
	"github.com/MikeSquared-Agency/prospect/internal/session"
	"github.com/MikeSquared-Agency/prospect/internal/store"
	"github.com/MikeSquared-Agency/prospect/internal/transcript"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("prospect starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready")

	// Anthropic client
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	registry := agents.Default()

	// NATS event bus
	bus, err := events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Webhook notifier (optional — analyses run fine without it)
	var notifier api.Notifier
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.WebhookURL, slog.Default())
		slog.Info("webhook notifier ready")
	} else {
		slog.Warn("webhook not configured — outcomes only via API and events")
	}

	orch := pipeline.New(registry, llm, db, bus, cfg.MaxRetries, cfg.RetryDelay, slog.Default())

	srv := api.NewServer(cfg.Port, cfg.APIToken, orch, db, registry, notifier, cfg.MaxTranscript, slog.Default())

	// Transcripts submitted over the bus start an analysis just like the API.
	err = bus.Subscribe(events.SubjectTranscriptSubmitted, func(subject string, data []byte) {
		var evt events.TranscriptSubmitted
		if err := json.Unmarshal(data, &evt); err != nil {
			slog.Warn("malformed transcript event", "error", err)
			return
		}
		prepared, err := transcript.Prepare(evt.Transcript, cfg.MaxTranscript)
		if err != nil {
			slog.Warn("rejected submitted transcript", "source", evt.Source, "error", err)
			return
		}
		sess := session.New(prepared)
		if err := db.Save(ctx, sess); err != nil {
			slog.Error("failed to create session", "error", err)
			return
		}
		slog.Info("transcript submitted", "session_id", sess.ID, "source", evt.Source)
		go srv.RunAndNotify(ctx, sess)
	})
	if err != nil {
		slog.Error("failed to subscribe to transcript events", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("prospect ready", "port", cfg.Port, "agents", registry.Len())

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
	slog.Info("prospect stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
