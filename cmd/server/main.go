package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mailpilot-ai/mailpilot/pkg/ai"
	"github.com/mailpilot-ai/mailpilot/pkg/api"
	"github.com/mailpilot-ai/mailpilot/pkg/assistant"
	"github.com/mailpilot-ai/mailpilot/pkg/config"
	"github.com/mailpilot-ai/mailpilot/pkg/export"
	"github.com/mailpilot-ai/mailpilot/pkg/gmail"
	"github.com/mailpilot-ai/mailpilot/pkg/ratelimit"
)

func main() {
	logger := log.NewWithOptions(os.Stdout, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Level:           log.DebugLevel,
		TimeFormat:      time.Kitchen,
	})

	cfg, err := config.LoadConfig(false)
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mailClient, err := gmail.Authenticate(ctx, logger, cfg.CredentialsPath, cfg.TokenPath)
	if err != nil {
		logger.Fatal("google authentication failed", "error", err)
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimit, time.Duration(cfg.RateLimitInterval)*time.Second)
	backend := ai.NewOpenAIService(logger, cfg.CompletionsAPIKey, cfg.CompletionsAPIURL, cfg.CompletionsModel)
	generator := ai.NewClient(logger, backend, limiter, cfg.MaxRetries)

	asst := assistant.New(logger, mailClient, generator)
	exporter := export.NewExporter(logger, cfg.CSVOutputPath)

	server := api.NewServer(logger, asst, exporter, mailClient, api.Defaults{
		Days:                  cfg.DaysToProcess,
		EnableReplyGeneration: cfg.EnableReplyGeneration,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: server.Router(),
	}

	go func() {
		logger.Info("http server listening", "port", cfg.APIPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
