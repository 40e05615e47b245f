package google

import (
	"errors"
	"testing"
)

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name    string
		row     []any
		wantErr bool
	}{
		{"empty sheet", nil, false},
		{"blank cells", []any{"", " ", nil}, false},
		{"mirror header", []any{"Loan ID", "Loan", "Installment", "Due date", "Expected", "Paid", "Paid amount", "Paid date"}, false},
		{"restyled header", []any{" loan id", "LOAN", "installment", "due date", "expected", "paid", "paid amount", "PAID DATE "}, false},
		{"someone else's data", []any{"Date", "Description", "Amount"}, true},
		{"truncated header", []any{"Loan ID", "Loan"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHeader(tt.row)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrForeignSheet) {
				t.Errorf("expected ErrForeignSheet, got %v", err)
			}
		})
	}
}
