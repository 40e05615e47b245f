package sheets

import (
	"testing"

	"emprest/internal/core"
)

func TestScheduleRows(t *testing.T) {
	loans := []core.Loan{{
		ID:                "l-1",
		Name:              "Car",
		InstallmentsCount: 2,
		Installments: []core.Installment{
			{ID: "i-1", Number: 1, DueDate: "2024-04-10", ExpectedAmountCents: 50000,
				Paid: true, PaidAmountCents: core.Int64(45050), PaidDate: core.DatePtr("2024-04-02")},
			{ID: "i-2", Number: 2, DueDate: "2024-05-10", ExpectedAmountCents: 50001},
		},
	}}

	rows := ScheduleRows(loans)
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Loan ID" || len(rows[0]) != len(Header) {
		t.Errorf("unexpected header %v", rows[0])
	}

	paid := rows[1]
	if paid[2] != "1/2" || paid[3] != "2024-04-10" || paid[4] != 500.0 {
		t.Errorf("unexpected paid row %v", paid)
	}
	if paid[5] != true || paid[6] != 450.5 || paid[7] != "2024-04-02" {
		t.Errorf("unexpected paid columns %v", paid)
	}

	open := rows[2]
	if open[4] != 500.01 || open[5] != false || open[6] != "" || open[7] != "" {
		t.Errorf("unexpected open row %v", open)
	}
}

func TestScheduleRows_Empty(t *testing.T) {
	rows := ScheduleRows(nil)
	if len(rows) != 1 {
		t.Fatalf("expected only the header, got %d rows", len(rows))
	}
}
