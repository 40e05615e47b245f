// Package autobackup writes the backup document to disk on a cron schedule
// and keeps only the newest files.
package autobackup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"emprest/internal/backup"
	"emprest/internal/core"
	"emprest/internal/storage"

	"github.com/robfig/cron/v3"
)

const runTimeout = time.Minute

// filePrefix matches the download name so auto backups import the same way.
var filePrefix = backup.AppTag + "-backup-"

// Exporter renders the current collection as a backup document.
type Exporter interface {
	ExportBackup() ([]byte, string, error)
}

// Runner writes one backup file per run.
type Runner struct {
	exporter Exporter
	files    *storage.FileStore
	dir      string
	retain   int
	clock    core.Clock
	logger   *slog.Logger
}

type Option func(*Runner)

func WithClock(c core.Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner writes into dir, creating it if needed, and keeps the newest
// retain files.
func NewRunner(exporter Exporter, dir string, retain int, opts ...Option) (*Runner, error) {
	if retain < 1 {
		return nil, fmt.Errorf("invalid retention %d: must be at least 1", retain)
	}
	files, err := storage.NewFileStore(dir)
	if err != nil {
		return nil, fmt.Errorf("backup directory: %w", err)
	}
	r := &Runner{
		exporter: exporter,
		files:    files,
		dir:      dir,
		retain:   retain,
		clock:    core.SystemClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run exports the collection to a timestamped file and prunes old ones. It
// returns the written path.
func (r *Runner) Run(ctx context.Context) (string, error) {
	data, _, err := r.exporter.ExportBackup()
	if err != nil {
		return "", fmt.Errorf("export backup: %w", err)
	}

	key := filePrefix + r.clock.Now().UTC().Format("2006-01-02-150405")
	if err := r.files.Set(ctx, key, data); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	path := r.files.Path(key)

	removed, err := r.prune()
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to prune old backups", "dir", r.dir, "error", err)
	}
	r.logger.InfoContext(ctx, "Auto backup written",
		"path", path,
		"bytes", len(data),
		"pruned", removed)
	return path, nil
}

// prune removes the oldest backup files beyond the retention count. Names
// sort chronologically.
func (r *Runner) prune() (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= r.retain {
		return 0, nil
	}
	sort.Strings(names)

	removed := 0
	for _, name := range names[:len(names)-r.retain] {
		if err := os.Remove(filepath.Join(r.dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Scheduler triggers a Runner on a standard five-field cron expression or a
// descriptor such as "@daily".
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *slog.Logger
}

func NewScheduler(schedule string, runner *Runner, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	s := &Scheduler{cron: c, runner: runner, logger: logger}
	if _, err := c.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid auto backup schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Auto backup failed", "error", err)
	}
}

// Next reports when the job fires next. Zero before Run starts.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running backup to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.InfoContext(ctx, "Auto backup scheduler started", "next", s.Next())

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Auto backup scheduler stopped")
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
