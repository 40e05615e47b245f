package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// Installment is one scheduled payment of a loan.
	Installment struct {
		ID                  string `json:"id"`
		Number              int    `json:"number"` // 1..N
		DueDate             Date   `json:"dueDate"`
		ExpectedAmountCents int64  `json:"expectedAmountCents"`

		Paid bool `json:"paid"`
		// Present only when Paid.
		PaidAmountCents *int64 `json:"paidAmountCents,omitempty"`
		PaidDate        *Date  `json:"paidDate,omitempty"`
	}

	// Loan is one loan or financing record and the installments it owns.
	Loan struct {
		ID   string `json:"id"`
		Name string `json:"name"`

		PrincipalAmountCents int64 `json:"principalAmountCents"`
		TotalToPayCents      int64 `json:"totalToPayCents"`

		// Informational only.
		InterestRateMonthlyPct *float64 `json:"interestRateMonthlyPct,omitempty"`
		CETAnnualPct           *float64 `json:"cetAnnualPct,omitempty"`

		InstallmentsCount int  `json:"installmentsCount"`
		FirstDueDate      Date `json:"firstDueDate"`

		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`

		Installments []Installment `json:"installments"`
	}

	// NewLoanInput carries what a user types when creating a loan.
	NewLoanInput struct {
		Name                   string
		PrincipalAmountCents   int64
		TotalToPayCents        int64
		InstallmentsCount      int
		FirstDueDate           Date
		InterestRateMonthlyPct float64 // ignored unless > 0
		CETAnnualPct           float64 // ignored unless > 0
	}
)

var (
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInvalidDate              = errors.New("invalid date")
	ErrEmptyName                = errors.New("empty name")
	ErrInvalidInstallmentsCount = errors.New("installments count must be at least 1")
)

func (in NewLoanInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if in.PrincipalAmountCents <= 0 {
		return fmt.Errorf("principal: %w", ErrInvalidAmount)
	}
	if in.TotalToPayCents <= 0 {
		return fmt.Errorf("total to pay: %w", ErrInvalidAmount)
	}
	if in.InstallmentsCount <= 0 {
		return ErrInvalidInstallmentsCount
	}
	if err := in.FirstDueDate.Validate(); err != nil {
		return err
	}
	return nil
}

// NewLoan validates in and builds a loan with a freshly generated schedule.
func NewLoan(in NewLoanInput, ids IDGenerator, clock Clock) (Loan, error) {
	if err := in.Validate(); err != nil {
		return Loan{}, err
	}
	now := Timestamp(clock)
	loan := Loan{
		ID:                   ids.NewID(),
		Name:                 strings.TrimSpace(in.Name),
		PrincipalAmountCents: in.PrincipalAmountCents,
		TotalToPayCents:      in.TotalToPayCents,
		InstallmentsCount:    in.InstallmentsCount,
		FirstDueDate:         in.FirstDueDate,
		CreatedAt:            now,
		UpdatedAt:            now,
		Installments:         CreateInstallments(ids, in.InstallmentsCount, in.FirstDueDate, in.TotalToPayCents),
	}
	if in.InterestRateMonthlyPct > 0 {
		loan.InterestRateMonthlyPct = Float(in.InterestRateMonthlyPct)
	}
	if in.CETAnnualPct > 0 {
		loan.CETAnnualPct = Float(in.CETAnnualPct)
	}
	return loan, nil
}

// Installment returns the installment with the given id.
func (l Loan) Installment(id string) (Installment, bool) {
	for _, it := range l.Installments {
		if it.ID == id {
			return it, true
		}
	}
	return Installment{}, false
}

// Clone returns a deep copy so callers cannot alias the owner's installments.
func (l Loan) Clone() Loan {
	out := l
	if l.Installments != nil {
		out.Installments = make([]Installment, len(l.Installments))
		copy(out.Installments, l.Installments)
	}
	return out
}

// Pointer helpers for optional fields.
func Int64(v int64) *int64 { return &v }

func Float(v float64) *float64 { return &v }

func DatePtr(v Date) *Date { return &v }

func Bool(v bool) *bool { return &v }

func Time(v time.Time) *time.Time { return &v }
