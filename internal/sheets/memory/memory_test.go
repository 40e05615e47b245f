package memory

import (
	"context"
	"testing"

	"emprest/internal/core"
)

func TestWriterReplacesRows(t *testing.T) {
	w := New()
	ctx := context.Background()

	first := []core.Loan{{ID: "a", Name: "A", InstallmentsCount: 2, Installments: []core.Installment{
		{ID: "a1", Number: 1, DueDate: "2024-01-10", ExpectedAmountCents: 100},
		{ID: "a2", Number: 2, DueDate: "2024-02-10", ExpectedAmountCents: 100},
	}}}
	if err := w.WriteSchedule(ctx, first); err != nil {
		t.Fatalf("WriteSchedule: %v", err)
	}
	if got := len(w.Rows()); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}

	if err := w.WriteSchedule(ctx, nil); err != nil {
		t.Fatalf("WriteSchedule: %v", err)
	}
	if got := len(w.Rows()); got != 1 {
		t.Errorf("expected only the header after an empty write, got %d rows", got)
	}
	if w.Writes() != 2 {
		t.Errorf("expected 2 writes, got %d", w.Writes())
	}
}

func TestWriterRowsAreCopies(t *testing.T) {
	w := New()
	_ = w.WriteSchedule(context.Background(), nil)
	rows := w.Rows()
	rows[0][0] = "changed"
	if w.Rows()[0][0] != "Loan ID" {
		t.Error("Rows should return a copy")
	}
}

func TestWriterCancelledContext(t *testing.T) {
	w := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.WriteSchedule(ctx, nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if w.Writes() != 0 {
		t.Error("cancelled write should not count")
	}
}
