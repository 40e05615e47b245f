package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"emprest/internal/autobackup"
	"emprest/internal/cli"
	apphttp "emprest/internal/http"
	"emprest/internal/loans"
	"emprest/internal/log"
	"emprest/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()

	cfg, cfgErr := cli.LoadAndValidateConfig()
	levelName := "info"
	if cfg != nil {
		levelName = cfg.LogLevel
	}
	logger := cli.SetupLogger(levelName, log.ComponentApp, os.Stdout)
	if cfgErr != nil {
		logger.Error("Configuration validation failed", "error", cfgErr)
		os.Exit(1)
	}

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

	store := loans.Open(ctx, res.Blobs,
		loans.WithKey(cfg.StorageKey),
		loans.WithLogger(logger.WithComponent(log.ComponentLoans).Slog()))

	opts := []services.Option{services.WithLogger(logger.WithComponent(log.ComponentLoans).Slog())}
	// A nil *amqp.Client must not become a non-nil Notifier.
	if res.AMQP != nil {
		opts = append(opts, services.WithNotifier(res.AMQP))
	}
	svc := services.NewLoanService(store, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger)

	var scheduler *autobackup.Scheduler
	if cfg.AutoBackupSchedule != "" {
		scheduler, err = newBackupScheduler(svc, logger, cfg.AutoBackupSchedule, cfg.AutoBackupDir, cfg.AutoBackupRetain)
		if err != nil {
			logger.Error("Failed to initialize auto backup", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("Auto backup disabled - no AUTO_BACKUP_SCHEDULE provided")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting emprest server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server", "timeout", cfg.ShutdownTimeout)
		return srv.Shutdown(shutdownCtx)
	})

	if scheduler != nil {
		g.Go(func() error { return scheduler.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func newBackupScheduler(svc *services.LoanService, logger *log.Logger, schedule, dir string, retain int) (*autobackup.Scheduler, error) {
	l := logger.WithComponent(log.ComponentScheduler).Slog()
	runner, err := autobackup.NewRunner(svc, dir, retain, autobackup.WithLogger(l))
	if err != nil {
		return nil, err
	}
	return autobackup.NewScheduler(schedule, runner, l)
}
