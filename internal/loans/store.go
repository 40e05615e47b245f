// Package loans holds the in-memory loan collection, applies mutations to it
// and persists it wholesale to a blob store after every change.
package loans

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"emprest/internal/core"
	"emprest/internal/storage"
)

const (
	// DefaultStorageKey is the blob key the collection is stored under.
	DefaultStorageKey = "emprest-simples:v1"

	// StorageVersion tags the persisted document format.
	StorageVersion = 1
)

// StorageShape is the persisted document.
type StorageShape struct {
	Version int         `json:"version"`
	Loans   []core.Loan `json:"loans"`
}

// Store is the single source of truth for the loan collection. Newest loans
// come first.
type Store struct {
	mu       sync.Mutex
	blobs    storage.BlobStore
	key      string
	logger   *slog.Logger
	loans    []core.Loan
	revision int64
}

type Option func(*Store)

// WithKey overrides DefaultStorageKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open loads the collection from blobs. A missing, unreadable or
// incompatible document yields an empty collection; Open never fails.
func Open(ctx context.Context, blobs storage.BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:  blobs,
		key:    DefaultStorageKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loans = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []core.Loan {
	raw, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.InfoContext(ctx, "No stored loans, starting empty", "key", s.key)
		return []core.Loan{}
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read stored loans, starting empty", "key", s.key, "error", err)
		return []core.Loan{}
	}
	loans, err := DecodeStorage(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "Ignoring stored loans", "key", s.key, "error", err)
		return []core.Loan{}
	}
	s.logger.InfoContext(ctx, "Loaded stored loans", "key", s.key, "count", len(loans))
	return loans
}

// DecodeStorage parses a persisted document. It rejects anything that is not
// a version 1 document with a loans array.
func DecodeStorage(raw []byte) ([]core.Loan, error) {
	var doc struct {
		Version *int            `json:"version"`
		Loans   json.RawMessage `json:"loans"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode storage: %w", err)
	}
	if doc.Version == nil || *doc.Version != StorageVersion {
		return nil, errors.New("unsupported storage version")
	}
	if !bytes.HasPrefix(bytes.TrimSpace(doc.Loans), []byte("[")) {
		return nil, errors.New("loans is not an array")
	}
	var loans []core.Loan
	if err := json.Unmarshal(doc.Loans, &loans); err != nil {
		return nil, fmt.Errorf("decode loans: %w", err)
	}
	return loans, nil
}

// EncodeStorage renders loans as a persisted document.
func EncodeStorage(loans []core.Loan) ([]byte, error) {
	if loans == nil {
		loans = []core.Loan{}
	}
	return json.Marshal(StorageShape{Version: StorageVersion, Loans: loans})
}

func (s *Store) saveLocked(ctx context.Context) error {
	raw, err := EncodeStorage(s.loans)
	if err != nil {
		return fmt.Errorf("encode loans: %w", err)
	}
	if err := s.blobs.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("save loans: %w", err)
	}
	s.revision++
	s.logger.DebugContext(ctx, "Saved loans", "key", s.key, "count", len(s.loans), "revision", s.revision)
	return nil
}

// List returns a copy of the collection.
func (s *Store) List() []core.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Loan, len(s.loans))
	for i, l := range s.loans {
		out[i] = l.Clone()
	}
	return out
}

// Get returns the loan with the given id.
func (s *Store) Get(id string) (core.Loan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.loans[i].Clone(), true
	}
	return core.Loan{}, false
}

// Len returns the number of loans.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loans)
}

// Revision counts successful saves since Open.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Add puts loan at the front of the collection.
func (s *Store) Add(ctx context.Context, loan core.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans = append([]core.Loan{loan.Clone()}, s.loans...)
	return s.saveLocked(ctx)
}

// Delete removes the loan with the given id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return nil
	}
	next := make([]core.Loan, 0, len(s.loans)-1)
	next = append(next, s.loans[:i]...)
	s.loans = append(next, s.loans[i+1:]...)
	return s.saveLocked(ctx)
}

// UpdateLoan merges patch into the loan with the given id. Unknown ids are
// ignored. UpdatedAt is only changed when the patch says so.
func (s *Store) UpdateLoan(ctx context.Context, id string, patch core.LoanPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return nil
	}
	s.loans[i] = patch.Apply(s.loans[i])
	return s.saveLocked(ctx)
}

// UpdateInstallment merges patch into one installment of one loan. Unknown
// ids are ignored.
func (s *Store) UpdateInstallment(ctx context.Context, loanID, installmentID string, patch core.InstallmentPatch) error {
	return s.patchInstallment(ctx, loanID, installmentID, patch, nil)
}

// TouchInstallment merges patch into one installment and sets the loan's
// UpdatedAt in the same save. Unknown ids are ignored.
func (s *Store) TouchInstallment(ctx context.Context, loanID, installmentID string, patch core.InstallmentPatch, updatedAt time.Time) error {
	return s.patchInstallment(ctx, loanID, installmentID, patch, &updatedAt)
}

func (s *Store) patchInstallment(ctx context.Context, loanID, installmentID string, patch core.InstallmentPatch, updatedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(loanID)
	if i < 0 {
		return nil
	}
	loan := s.loans[i].Clone()
	found := false
	for j, it := range loan.Installments {
		if it.ID == installmentID {
			loan.Installments[j] = patch.Apply(it)
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	if updatedAt != nil {
		loan = core.LoanPatch{UpdatedAt: updatedAt}.Apply(loan)
	}
	s.loans[i] = loan
	return s.saveLocked(ctx)
}

// Replace swaps the whole collection, as done by a backup import.
func (s *Store) Replace(ctx context.Context, loans []core.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]core.Loan, len(loans))
	for i, l := range loans {
		next[i] = l.Clone()
	}
	s.loans = next
	return s.saveLocked(ctx)
}

func (s *Store) indexLocked(id string) int {
	for i, l := range s.loans {
		if l.ID == id {
			return i
		}
	}
	return -1
}
