package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"invoice-sentinel/internal/common"
	"invoice-sentinel/internal/extract"
	"invoice-sentinel/internal/ingest"
	"invoice-sentinel/internal/llm"
	"invoice-sentinel/internal/pipeline"
	"invoice-sentinel/internal/repository"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("AZURE_OPENAI_API_KEY")
	if apiKey == "" {
		logger.Error("AZURE_OPENAI_API_KEY env var is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	repo := repository.NewInvoiceRepository(db, logger)

	chat := llm.NewAzureClient(llm.Config{
		APIVersion: cfg.LLM.APIVersion,
		Timeout:    cfg.LLM.Timeout,
	}, logger)

	handler := &ingest.Handler{
		Processor: pipeline.NewProcessor(logger, extract.NewExtractor(chat, logger), repo),
		Creds: llm.Credentials{
			Endpoint:   cfg.LLM.Endpoint,
			APIKey:     apiKey,
			Deployment: cfg.LLM.Deployment,
		},
		ProcessedDir: cfg.Inbox.ProcessedDir,
		FailedDir:    cfg.Inbox.FailedDir,
		Logger:       logger,
	}

	if err := os.MkdirAll(cfg.Inbox.WatchDir, 0o755); err != nil {
		logger.Error("failed to create inbox directory", "dir", cfg.Inbox.WatchDir, "error", err)
		os.Exit(1)
	}

	files, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:        cfg.Inbox.WatchDir,
		InitialScan: cfg.Inbox.InitialScan,
	}, logger)
	if err != nil {
		logger.Error("failed to start inbox watcher", "error", err)
		os.Exit(1)
	}
	logger.Info("watching inbox", "dir", cfg.Inbox.WatchDir)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			return
		case path, ok := <-files:
			if !ok {
				return
			}
			if err := handler.Handle(ctx, path); err != nil {
				logger.Error("inbox file handling failed", "path", path, "error", err)
			}
		case err, ok := <-watchErrs:
			if !ok {
				return
			}
			logger.Error("inbox watch error", "error", err)
		}
	}
}
