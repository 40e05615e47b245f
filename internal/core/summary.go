package core

import "math"

// LoanSummary is the derived financial state of a loan. It is a projection
// of the installments and is never stored.
type LoanSummary struct {
	PaidInstallmentsCount  int   `json:"paidInstallmentsCount"`
	OpenInstallmentsCount  int   `json:"openInstallmentsCount"`
	PaidSoFarCents         int64 `json:"paidSoFarCents"`
	RemainingExpectedCents int64 `json:"remainingExpectedCents"`
	ProjectedTotalCents    int64 `json:"projectedTotalCents"`
	// Positive when paying less than originally expected.
	SavingsCents int64 `json:"savingsCents"`
	ProgressPct  int   `json:"progressPct"`
}

// CalcLoanSummary partitions the installments into paid and open and derives
// what has been paid, what is still expected and the projected savings.
func CalcLoanSummary(l Loan) LoanSummary {
	var s LoanSummary
	for _, it := range l.Installments {
		if it.Paid {
			s.PaidInstallmentsCount++
			if it.PaidAmountCents != nil {
				s.PaidSoFarCents += *it.PaidAmountCents
			}
			continue
		}
		s.OpenInstallmentsCount++
		s.RemainingExpectedCents += it.ExpectedAmountCents
	}
	s.ProjectedTotalCents = s.PaidSoFarCents + s.RemainingExpectedCents
	s.SavingsCents = l.TotalToPayCents - s.ProjectedTotalCents
	if l.InstallmentsCount > 0 {
		s.ProgressPct = int(math.Round(float64(s.PaidInstallmentsCount) / float64(l.InstallmentsCount) * 100))
	}
	return s
}
