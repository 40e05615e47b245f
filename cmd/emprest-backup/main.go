// Command emprest-backup exports the stored loans to a backup file or imports
// one into the store, using the same backend settings as the API.
//
// Run it while the API is stopped: the API keeps the collection in memory and
// overwrites the stored document on its next change.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"emprest/internal/cli"
	"emprest/internal/config"
	"emprest/internal/loans"
	"emprest/internal/log"
	"emprest/internal/services"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg, cfgErr := cli.LoadAndValidateConfig()
	levelName := "info"
	if cfg != nil {
		levelName = cfg.LogLevel
	}
	logger := cli.SetupLogger(levelName, log.ComponentBackup, os.Stderr)
	if cfgErr != nil {
		logger.Error("Configuration validation failed", "error", cfgErr)
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Error("The memory backend holds no data between runs; set DATA_BACKEND to file, sqlite or postgres")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	var err error
	switch os.Args[1] {
	case "export":
		err = runExport(ctx, logger, *cfg, os.Args[2:])
	case "import":
		err = runImport(ctx, logger, *cfg, os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
		return
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Backup command failed", "command", os.Args[1], "error", err)
		stop()
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage:
  emprest-backup export [-o file | -dir directory]
  emprest-backup import [-mode merge|replace] file`)
}

// openService opens the configured store without a notifier. Imports are
// picked up by the sheet mirror on its next startup sync.
func openService(ctx context.Context, logger *log.Logger, cfg config.Config) (*services.LoanService, func(), error) {
	cfg.AMQPURL = ""
	res, err := cli.OpenBackend(ctx, logger, &cfg)
	if err != nil {
		return nil, nil, err
	}
	store := loans.Open(ctx, res.Blobs,
		loans.WithKey(cfg.StorageKey),
		loans.WithLogger(logger.WithComponent(log.ComponentLoans).Slog()))
	svc := services.NewLoanService(store, services.WithLogger(logger.WithComponent(log.ComponentLoans).Slog()))
	cleanup := func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}
	return svc, cleanup, nil
}

func runExport(ctx context.Context, logger *log.Logger, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "", "write the backup to this file (- for stdout)")
	dir := fs.String("dir", "", "write the backup into this directory under its default name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, cleanup, err := openService(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	data, name, err := svc.ExportBackup()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	path := *out
	switch {
	case path == "-" || (path == "" && *dir == ""):
		_, err := os.Stdout.Write(data)
		return err
	case path == "":
		path = filepath.Join(*dir, name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	logger.Info("Backup exported", "path", path, "loan_count", len(svc.ListLoans()))
	return nil
}

func runImport(ctx context.Context, logger *log.Logger, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	modeFlag := fs.String("mode", string(services.ImportMerge), "merge or replace")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import needs exactly one backup file, got %d", fs.NArg())
	}
	mode, err := services.ParseImportMode(*modeFlag)
	if err != nil {
		return err
	}

	var data []byte
	if path := fs.Arg(0); path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	svc, cleanup, err := openService(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := svc.ImportBackup(ctx, data, mode)
	if err != nil {
		return err
	}
	logger.Info("Backup imported",
		"import_mode", string(mode),
		"imported", n,
		"loan_count", len(svc.ListLoans()))
	return nil
}
