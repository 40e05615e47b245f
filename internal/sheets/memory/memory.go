package memory

import (
	"context"
	"sync"

	"emprest/internal/core"
	"emprest/internal/sheets"
)

// Writer keeps the last mirrored schedule in memory.
type Writer struct {
	mu     sync.Mutex
	rows   [][]any
	writes int
}

func New() *Writer {
	return &Writer{}
}

// WriteSchedule replaces the stored rows.
func (w *Writer) WriteSchedule(ctx context.Context, loans []core.Loan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := sheets.ScheduleRows(loans)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = rows
	w.writes++
	return nil
}

// Rows returns the rows of the last write, header included.
func (w *Writer) Rows() [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]any, len(w.rows))
	for i, r := range w.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Writes counts successful WriteSchedule calls.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
