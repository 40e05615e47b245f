// Package backup exports the loan collection as a self-describing JSON
// document and imports loans back from backups, raw storage documents or bare
// arrays, repairing whatever it can along the way.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"emprest/internal/core"
	"emprest/internal/loans"
)

const (
	// AppTag identifies documents produced by Serialize.
	AppTag = "emprest-simples"

	// Version of the backup envelope.
	Version = 1

	// ImportedLoanName names imported loans that carry no usable name.
	ImportedLoanName = "Imported loan"

	// maxGeneratedInstallments bounds the schedule generated for a loan that
	// arrives without installments.
	maxGeneratedInstallments = 1200
)

var (
	ErrMalformedInput     = errors.New("invalid JSON: check the imported file or text")
	ErrUnrecognizedFormat = errors.New("unrecognized backup structure: expected an array of loans")
	ErrEmptyBackup        = errors.New("backup contains no valid loans to import")
)

// Envelope is the exported backup document.
type Envelope struct {
	App           string             `json:"app"`
	BackupVersion int                `json:"backupVersion"`
	ExportedAt    time.Time          `json:"exportedAt"`
	Storage       loans.StorageShape `json:"storage"`
}

// Codec serializes and parses backups. The clock stamps exports and fills in
// missing dates on import; ids replace missing identifiers.
type Codec struct {
	clock core.Clock
	ids   core.IDGenerator
}

func NewCodec(clock core.Clock, ids core.IDGenerator) *Codec {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if ids == nil {
		ids = core.UUIDGenerator{}
	}
	return &Codec{clock: clock, ids: ids}
}

// Serialize renders ls as an indented backup document.
func (c *Codec) Serialize(ls []core.Loan) ([]byte, error) {
	if ls == nil {
		ls = []core.Loan{}
	}
	env := Envelope{
		App:           AppTag,
		BackupVersion: Version,
		ExportedAt:    core.Timestamp(c.clock),
		Storage:       loans.StorageShape{Version: loans.StorageVersion, Loans: ls},
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return out, nil
}

// Filename is the suggested file name for a backup exported at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("%s-backup-%s.json", AppTag, t.Format(core.DateLayout))
}

// Parse reads loans from a backup envelope, a storage document or a bare
// array, in that order of preference. Elements that are not objects are
// dropped; everything else is normalized into a consistent loan.
func (c *Codec) Parse(data []byte) ([]core.Loan, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	raw, ok := locateLoans(doc)
	if !ok {
		return nil, ErrUnrecognizedFormat
	}

	out := make([]core.Loan, 0, len(raw))
	for _, v := range raw {
		if l, ok := c.normalizeLoan(v); ok {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyBackup
	}
	return out, nil
}

func locateLoans(doc any) ([]any, bool) {
	if obj, ok := asObject(doc); ok {
		if st, ok := asObject(obj["storage"]); ok {
			if arr, ok := st["loans"].([]any); ok {
				return arr, true
			}
		}
		if arr, ok := obj["loans"].([]any); ok {
			return arr, true
		}
	}
	arr, ok := doc.([]any)
	return arr, ok
}

func (c *Codec) normalizeLoan(v any) (core.Loan, bool) {
	m, ok := asObject(v)
	if !ok {
		return core.Loan{}, false
	}

	now := core.Timestamp(c.clock)
	today := core.TodayISODate(c.clock)

	l := core.Loan{
		ID:                     c.idOr(m),
		Name:                   stringOr(m, "name", ImportedLoanName),
		PrincipalAmountCents:   intOr(m, "principalAmountCents", 0),
		TotalToPayCents:        intOr(m, "totalToPayCents", 0),
		InterestRateMonthlyPct: optionalFloat(m, "interestRateMonthlyPct"),
		CETAnnualPct:           optionalFloat(m, "cetAnnualPct"),
		FirstDueDate:           core.Date(stringOr(m, "firstDueDate", today.String())),
		CreatedAt:              timeOr(m, "createdAt", now),
		UpdatedAt:              timeOr(m, "updatedAt", now),
	}

	installments := []core.Installment{}
	if raw, ok := m["installments"].([]any); ok {
		for idx, r := range raw {
			if it, ok := c.normalizeInstallment(r, idx, l.FirstDueDate, today); ok {
				installments = append(installments, it)
			}
		}
	}

	count := intOr(m, "installmentsCount", int64(len(installments)))
	if count <= 0 && len(installments) > 0 {
		count = int64(len(installments))
	}
	if count <= 0 {
		count = 1
	}

	if len(installments) == 0 {
		if l.TotalToPayCents <= 0 {
			l.TotalToPayCents = max(l.PrincipalAmountCents, 0)
		}
		installments = core.CreateInstallments(c.ids, int(min(count, maxGeneratedInstallments)), l.FirstDueDate, l.TotalToPayCents)
	}

	if l.TotalToPayCents <= 0 {
		var sum int64
		for _, it := range installments {
			sum += it.ExpectedAmountCents
		}
		l.TotalToPayCents = sum
	}

	l.Installments = installments
	l.InstallmentsCount = len(installments)
	return l, true
}

func (c *Codec) normalizeInstallment(v any, idx int, firstDueDate, today core.Date) (core.Installment, bool) {
	m, ok := asObject(v)
	if !ok {
		return core.Installment{}, false
	}
	it := core.Installment{
		ID:                  c.idOr(m),
		Number:              int(intOr(m, "number", int64(idx+1))),
		DueDate:             core.Date(stringOr(m, "dueDate", firstDueDate.String())),
		ExpectedAmountCents: intOr(m, "expectedAmountCents", 0),
		Paid:                boolOr(m, "paid", false),
	}
	if it.Paid {
		it.PaidAmountCents = core.Int64(intOr(m, "paidAmountCents", it.ExpectedAmountCents))
		it.PaidDate = core.DatePtr(core.Date(stringOr(m, "paidDate", today.String())))
	}
	return it, true
}

func (c *Codec) idOr(m map[string]any) string {
	if id, ok := stringField(m, "id"); ok {
		return id
	}
	return c.ids.NewID()
}

// Merge combines imported loans with the existing collection by id. Imported
// loans come first in their incoming order, followed by the existing loans
// that were not imported. When an id repeats, every position holds the value
// of its last occurrence, imported taking precedence over existing.
func Merge(existing, imported []core.Loan) []core.Loan {
	latest := make(map[string]core.Loan, len(existing)+len(imported))
	for _, l := range existing {
		latest[l.ID] = l
	}
	importedIDs := make(map[string]struct{}, len(imported))
	for _, l := range imported {
		latest[l.ID] = l
		importedIDs[l.ID] = struct{}{}
	}

	out := make([]core.Loan, 0, len(existing)+len(imported))
	for _, l := range imported {
		out = append(out, latest[l.ID])
	}
	for _, l := range existing {
		if _, ok := importedIDs[l.ID]; !ok {
			out = append(out, latest[l.ID])
		}
	}
	return out
}
