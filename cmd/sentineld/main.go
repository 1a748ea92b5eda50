package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"invoice-sentinel/internal/common"
	"invoice-sentinel/internal/export"
	"invoice-sentinel/internal/extract"
	"invoice-sentinel/internal/llm"
	"invoice-sentinel/internal/narrative"
	"invoice-sentinel/internal/pipeline"
	"invoice-sentinel/internal/repository"
	"invoice-sentinel/internal/server"
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

	srv := server.New(
		repo,
		pipeline.NewProcessor(logger, extract.NewExtractor(chat, logger), repo),
		narrative.NewService(repo, chat, logger),
		export.NewService(repo, logger),
		server.ServerCredentials{
			Endpoint:   cfg.LLM.Endpoint,
			Deployment: cfg.LLM.Deployment,
		},
		cfg.Server.StorageDir,
		logger,
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("http server stopped")
}
