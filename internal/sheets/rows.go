package sheets

import (
	"fmt"

	"emprest/internal/core"
)

// Header is the first row of the mirrored sheet.
var Header = []string{
	"Loan ID",
	"Loan",
	"Installment",
	"Due date",
	"Expected",
	"Paid",
	"Paid amount",
	"Paid date",
}

// ScheduleRows renders the header followed by one row per installment, loans
// in collection order. Amounts are in currency units so the sheet can sum
// them; unpaid installments leave the paid columns blank.
func ScheduleRows(loans []core.Loan) [][]any {
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	rows := [][]any{header}

	for _, l := range loans {
		for _, it := range l.Installments {
			paidAmount, paidDate := any(""), any("")
			if it.Paid {
				if it.PaidAmountCents != nil {
					paidAmount = core.FromCents(*it.PaidAmountCents)
				}
				if it.PaidDate != nil {
					paidDate = it.PaidDate.String()
				}
			}
			rows = append(rows, []any{
				l.ID,
				l.Name,
				fmt.Sprintf("%d/%d", it.Number, l.InstallmentsCount),
				it.DueDate.String(),
				core.FromCents(it.ExpectedAmountCents),
				it.Paid,
				paidAmount,
				paidDate,
			})
		}
	}
	return rows
}
