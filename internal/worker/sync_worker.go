package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"emprest/internal/amqp"
	"emprest/internal/core"
	"emprest/internal/loans"
	"emprest/internal/sheets"
	"emprest/internal/storage"
)

// SyncWorker mirrors the stored loan collection into a spreadsheet whenever a
// loans.changed message arrives. Every run rewrites the whole schedule, so
// duplicate or out-of-order messages are harmless.
type SyncWorker struct {
	blobs  storage.BlobStore
	key    string
	sheets sheets.ScheduleWriter
	logger *slog.Logger
}

func NewSyncWorker(blobs storage.BlobStore, key string, writer sheets.ScheduleWriter, logger *slog.Logger) *SyncWorker {
	if key == "" {
		key = loans.DefaultStorageKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		blobs:  blobs,
		key:    key,
		sheets: writer,
		logger: logger,
	}
}

// HandleLoansChanged processes a single loans.changed message from AMQP.
// Returned errors make the consumer requeue the message.
func (w *SyncWorker) HandleLoansChanged(ctx context.Context, msg *amqp.LoansChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing loans changed message",
		"revision", msg.Revision,
		"operation", msg.Operation,
		"loan_count", msg.LoanCount)

	return w.Sync(ctx)
}

// StartupSync mirrors the current collection once, to recover from messages
// missed while the worker was down.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Running startup sync")
	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	return nil
}

// Sync reads the stored collection and writes its schedule. A stored
// document that cannot be decoded is skipped so the sheet keeps its last
// good contents.
func (w *SyncWorker) Sync(ctx context.Context) error {
	all, err := w.load(ctx)
	if err != nil {
		return err
	}
	if all == nil {
		return nil
	}

	if err := w.sheets.WriteSchedule(ctx, all); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}

	installments := 0
	for _, l := range all {
		installments += len(l.Installments)
	}
	w.logger.InfoContext(ctx, "Successfully synced schedule",
		"loan_count", len(all),
		"installments", installments)
	return nil
}

// load returns nil without error when the stored document is unusable.
func (w *SyncWorker) load(ctx context.Context) ([]core.Loan, error) {
	raw, err := w.blobs.Get(ctx, w.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []core.Loan{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stored loans: %w", err)
	}
	all, err := loans.DecodeStorage(raw)
	if err != nil {
		w.logger.WarnContext(ctx, "Skipping sync of undecodable loans document",
			"key", w.key,
			"error", err)
		return nil, nil
	}
	return all, nil
}
