package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcLoanSummary(t *testing.T) {
	loan := Loan{
		TotalToPayCents:   1000,
		InstallmentsCount: 4,
		Installments: []Installment{
			{ID: "1", Number: 1, ExpectedAmountCents: 250, Paid: true, PaidAmountCents: Int64(250)},
			{ID: "2", Number: 2, ExpectedAmountCents: 250, Paid: true, PaidAmountCents: Int64(200)}, // early-payoff discount
			{ID: "3", Number: 3, ExpectedAmountCents: 250, Paid: true},                              // no recorded amount
			{ID: "4", Number: 4, ExpectedAmountCents: 250},
		},
	}

	s := CalcLoanSummary(loan)

	assert.Equal(t, 3, s.PaidInstallmentsCount)
	assert.Equal(t, 1, s.OpenInstallmentsCount)
	assert.Equal(t, int64(450), s.PaidSoFarCents)
	assert.Equal(t, int64(250), s.RemainingExpectedCents)
	assert.Equal(t, int64(700), s.ProjectedTotalCents)
	assert.Equal(t, int64(300), s.SavingsCents)
	assert.Equal(t, 75, s.ProgressPct)
}

func TestCalcLoanSummary_Penalty(t *testing.T) {
	loan := Loan{
		TotalToPayCents:   500,
		InstallmentsCount: 2,
		Installments: []Installment{
			{ID: "1", Number: 1, ExpectedAmountCents: 250, Paid: true, PaidAmountCents: Int64(300)},
			{ID: "2", Number: 2, ExpectedAmountCents: 250},
		},
	}
	s := CalcLoanSummary(loan)
	assert.Equal(t, int64(-50), s.SavingsCents)
	assert.Equal(t, s.PaidSoFarCents+s.RemainingExpectedCents, s.ProjectedTotalCents)
	assert.Equal(t, loan.TotalToPayCents-s.ProjectedTotalCents, s.SavingsCents)
	assert.Equal(t, 50, s.ProgressPct)
}

func TestCalcLoanSummary_Empty(t *testing.T) {
	s := CalcLoanSummary(Loan{TotalToPayCents: 100})
	assert.Equal(t, LoanSummary{SavingsCents: 100}, s)
}
