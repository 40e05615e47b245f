package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"emprest/internal/amqp"
	"emprest/internal/backup"
	"emprest/internal/core"
	"emprest/internal/loans"
)

var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrInstallmentNotPaid  = errors.New("installment is not paid")
	ErrInvalidImportMode   = errors.New("import mode must be merge or replace")
)

// ImportMode selects how imported loans combine with the current collection.
type ImportMode string

const (
	ImportMerge   ImportMode = "merge"
	ImportReplace ImportMode = "replace"
)

// ParseImportMode accepts "merge" (the default when empty) or "replace".
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return ImportReplace, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidImportMode, s)
}

// Notifier publishes loans.changed notifications.
type Notifier interface {
	PublishLoansChanged(ctx context.Context, msg *amqp.LoansChangedMessage) error
}

// LoanWithSummary is a loan together with its derived figures.
type LoanWithSummary struct {
	core.Loan
	Summary core.LoanSummary `json:"summary"`
}

// LoanService runs the user-facing loan workflows against the store and
// announces every change through the notifier, when one is configured.
type LoanService struct {
	store    *loans.Store
	codec    *backup.Codec
	notifier Notifier
	clock    core.Clock
	ids      core.IDGenerator
	logger   *slog.Logger
}

type Option func(*LoanService)

// WithNotifier enables change notifications. A nil notifier disables them.
func WithNotifier(n Notifier) Option {
	return func(s *LoanService) { s.notifier = n }
}

func WithClock(c core.Clock) Option {
	return func(s *LoanService) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithIDs(ids core.IDGenerator) Option {
	return func(s *LoanService) {
		if ids != nil {
			s.ids = ids
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *LoanService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewLoanService(store *loans.Store, opts ...Option) *LoanService {
	s := &LoanService{
		store:  store,
		clock:  core.SystemClock{},
		ids:    core.UUIDGenerator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.codec = backup.NewCodec(s.clock, s.ids)
	return s
}

// ListLoans returns every loan, newest first, with its summary.
func (s *LoanService) ListLoans() []LoanWithSummary {
	all := s.store.List()
	out := make([]LoanWithSummary, len(all))
	for i, l := range all {
		out[i] = LoanWithSummary{Loan: l, Summary: core.CalcLoanSummary(l)}
	}
	return out
}

func (s *LoanService) GetLoan(id string) (core.Loan, error) {
	l, ok := s.store.Get(id)
	if !ok {
		return core.Loan{}, ErrLoanNotFound
	}
	return l, nil
}

// Summary computes the figures for one loan on every call.
func (s *LoanService) Summary(id string) (core.LoanSummary, error) {
	l, err := s.GetLoan(id)
	if err != nil {
		return core.LoanSummary{}, err
	}
	return core.CalcLoanSummary(l), nil
}

// CreateLoan validates the input, generates the schedule and stores the loan
// at the front of the collection.
func (s *LoanService) CreateLoan(ctx context.Context, in core.NewLoanInput) (core.Loan, error) {
	l, err := core.NewLoan(in, s.ids, s.clock)
	if err != nil {
		return core.Loan{}, err
	}
	if err := s.store.Add(ctx, l); err != nil {
		return core.Loan{}, fmt.Errorf("add loan: %w", err)
	}
	s.notify(ctx, amqp.OpCreate)
	return l, nil
}

func (s *LoanService) DeleteLoan(ctx context.Context, id string) error {
	if _, ok := s.store.Get(id); !ok {
		return ErrLoanNotFound
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	s.logger.InfoContext(ctx, "Loan deleted", "loan_id", id)
	s.notify(ctx, amqp.OpDelete)
	return nil
}

// SetInstallmentPaid checks an installment off or back on. Checking it
// records the expected amount paid today; unchecking clears both.
func (s *LoanService) SetInstallmentPaid(ctx context.Context, loanID, installmentID string, paid bool) (core.Loan, error) {
	_, it, err := s.installment(loanID, installmentID)
	if err != nil {
		return core.Loan{}, err
	}
	patch := core.MarkUnpaid()
	if paid {
		patch = core.MarkPaid(it, core.TodayISODate(s.clock))
	}
	return s.updateInstallment(ctx, loanID, installmentID, patch)
}

// SetPaidAmount corrects the amount actually paid for a paid installment.
func (s *LoanService) SetPaidAmount(ctx context.Context, loanID, installmentID string, cents int64) (core.Loan, error) {
	if cents < 0 {
		return core.Loan{}, core.ErrInvalidAmount
	}
	if err := s.requirePaid(loanID, installmentID); err != nil {
		return core.Loan{}, err
	}
	return s.updateInstallment(ctx, loanID, installmentID, core.InstallmentPatch{PaidAmountCents: core.Int64(cents)})
}

// SetPaidDate corrects the payment date of a paid installment.
func (s *LoanService) SetPaidDate(ctx context.Context, loanID, installmentID string, date core.Date) (core.Loan, error) {
	if err := date.Validate(); err != nil {
		return core.Loan{}, err
	}
	if err := s.requirePaid(loanID, installmentID); err != nil {
		return core.Loan{}, err
	}
	return s.updateInstallment(ctx, loanID, installmentID, core.InstallmentPatch{PaidDate: core.DatePtr(date)})
}

func (s *LoanService) requirePaid(loanID, installmentID string) error {
	_, it, err := s.installment(loanID, installmentID)
	if err != nil {
		return err
	}
	if !it.Paid {
		return ErrInstallmentNotPaid
	}
	return nil
}

func (s *LoanService) installment(loanID, installmentID string) (core.Loan, core.Installment, error) {
	l, err := s.GetLoan(loanID)
	if err != nil {
		return core.Loan{}, core.Installment{}, err
	}
	it, ok := l.Installment(installmentID)
	if !ok {
		return core.Loan{}, core.Installment{}, ErrInstallmentNotFound
	}
	return l, it, nil
}

// updateInstallment applies patch and touches the loan's updatedAt in one save.
func (s *LoanService) updateInstallment(ctx context.Context, loanID, installmentID string, patch core.InstallmentPatch) (core.Loan, error) {
	if err := s.store.TouchInstallment(ctx, loanID, installmentID, patch, core.Timestamp(s.clock)); err != nil {
		return core.Loan{}, fmt.Errorf("update installment: %w", err)
	}
	s.notify(ctx, amqp.OpUpdate)
	return s.GetLoan(loanID)
}

// ExportBackup renders the current collection as a backup document and
// returns it with its suggested file name.
func (s *LoanService) ExportBackup() ([]byte, string, error) {
	data, err := s.codec.Serialize(s.store.List())
	if err != nil {
		return nil, "", err
	}
	return data, backup.Filename(s.clock.Now()), nil
}

// ImportBackup parses data and either replaces the collection or merges into
// it. It returns the number of loans read from the backup. Nothing changes
// when the backup cannot be parsed.
func (s *LoanService) ImportBackup(ctx context.Context, data []byte, mode ImportMode) (int, error) {
	if mode != ImportMerge && mode != ImportReplace {
		return 0, fmt.Errorf("%w: %q", ErrInvalidImportMode, mode)
	}
	imported, err := s.codec.Parse(data)
	if err != nil {
		return 0, err
	}

	next := imported
	if mode == ImportMerge {
		next = backup.Merge(s.store.List(), imported)
	}
	if err := s.store.Replace(ctx, next); err != nil {
		return 0, fmt.Errorf("replace loans: %w", err)
	}
	s.logger.DebugContext(ctx, "Collection replaced from backup",
		"import_mode", string(mode),
		"loan_count", len(next))
	s.notify(ctx, amqp.OpImport)
	return len(imported), nil
}

func (s *LoanService) notify(ctx context.Context, op string) {
	if s.notifier == nil {
		return
	}
	msg := amqp.NewLoansChangedMessage(s.store.Revision(), op, s.store.Len())
	if err := s.notifier.PublishLoansChanged(ctx, msg); err != nil {
		// The change is already stored; the mirror catches up on the next one.
		s.logger.ErrorContext(ctx, "Failed to publish loans changed message",
			"operation", op,
			"revision", msg.Revision,
			"error", err)
	}
}

// Close releases the notifier's connection.
func (s *LoanService) Close() error {
	if c, ok := s.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close loan service: amqp: %w", err)
		}
	}
	return nil
}
