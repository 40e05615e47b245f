package core

import "time"

// LoanPatch is a sparse set of loan field overrides. Nil fields are left
// untouched.
type LoanPatch struct {
	Name                   *string
	PrincipalAmountCents   *int64
	TotalToPayCents        *int64
	InterestRateMonthlyPct *float64
	CETAnnualPct           *float64
	InstallmentsCount      *int
	FirstDueDate           *Date
	UpdatedAt              *time.Time
	Installments           []Installment
}

// Apply returns a copy of l with the patch merged in.
func (p LoanPatch) Apply(l Loan) Loan {
	out := l.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.PrincipalAmountCents != nil {
		out.PrincipalAmountCents = *p.PrincipalAmountCents
	}
	if p.TotalToPayCents != nil {
		out.TotalToPayCents = *p.TotalToPayCents
	}
	if p.InterestRateMonthlyPct != nil {
		out.InterestRateMonthlyPct = Float(*p.InterestRateMonthlyPct)
	}
	if p.CETAnnualPct != nil {
		out.CETAnnualPct = Float(*p.CETAnnualPct)
	}
	if p.InstallmentsCount != nil {
		out.InstallmentsCount = *p.InstallmentsCount
	}
	if p.FirstDueDate != nil {
		out.FirstDueDate = *p.FirstDueDate
	}
	if p.UpdatedAt != nil {
		out.UpdatedAt = *p.UpdatedAt
	}
	if p.Installments != nil {
		out.Installments = append([]Installment(nil), p.Installments...)
	}
	return out
}

// InstallmentPatch is a sparse set of installment field overrides.
//
// ClearPayment removes PaidAmountCents and PaidDate before the other fields
// are applied, so "unpaid" never carries a stale amount.
type InstallmentPatch struct {
	DueDate             *Date
	ExpectedAmountCents *int64
	Paid                *bool
	PaidAmountCents     *int64
	PaidDate            *Date
	ClearPayment        bool
}

// Apply returns a copy of it with the patch merged in.
func (p InstallmentPatch) Apply(it Installment) Installment {
	out := it
	if p.ClearPayment {
		out.PaidAmountCents = nil
		out.PaidDate = nil
	}
	if p.DueDate != nil {
		out.DueDate = *p.DueDate
	}
	if p.ExpectedAmountCents != nil {
		out.ExpectedAmountCents = *p.ExpectedAmountCents
	}
	if p.Paid != nil {
		out.Paid = *p.Paid
	}
	if p.PaidAmountCents != nil {
		out.PaidAmountCents = Int64(*p.PaidAmountCents)
	}
	if p.PaidDate != nil {
		out.PaidDate = DatePtr(*p.PaidDate)
	}
	return out
}

// MarkPaid is the patch for checking an installment off: the paid amount
// defaults to the expected amount and the paid date to today.
func MarkPaid(it Installment, today Date) InstallmentPatch {
	return InstallmentPatch{
		Paid:            Bool(true),
		PaidAmountCents: Int64(it.ExpectedAmountCents),
		PaidDate:        DatePtr(today),
	}
}

// MarkUnpaid is the patch for unchecking an installment.
func MarkUnpaid() InstallmentPatch {
	return InstallmentPatch{Paid: Bool(false), ClearPayment: true}
}
