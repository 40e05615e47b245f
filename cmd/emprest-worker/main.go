package main

import (
	"context"
	"errors"
	"os"

	"emprest/internal/cli"
	"emprest/internal/log"
	gsheet "emprest/internal/sheets/google"
	"emprest/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()

	cfg, cfgErr := cli.LoadAndValidateConfig()
	levelName := "info"
	if cfg != nil {
		levelName = cfg.LogLevel
	}
	logger := cli.SetupLogger(levelName, log.ComponentWorker, os.Stdout)
	if cfgErr != nil {
		logger.Error("Configuration validation failed", "error", cfgErr)
		os.Exit(1)
	}
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Error("The worker reads the loans the API stores; the memory backend is not shared between processes")
		os.Exit(1)
	}

	logger.Info("Starting emprest-worker")

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()
	if res.AMQP == nil {
		logger.Error("AMQP broker unreachable, the worker cannot consume messages", "url_set", cfg.AMQPURL != "")
		os.Exit(1)
	}

	sheetsLogger := logger.WithComponent(log.ComponentSheets).Slog()
	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, sheetsLogger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	syncWorker := worker.NewSyncWorker(res.Blobs, cfg.StorageKey, sheetsClient, logger.WithComponent(log.ComponentWorker).Slog())

	// Catch up on changes made while the worker was down.
	if err := syncWorker.StartupSync(ctx); err != nil {
		logger.Error("Failed startup sync", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := res.AMQP.ConsumeLoansChanged(gctx, syncWorker.HandleLoansChanged)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
