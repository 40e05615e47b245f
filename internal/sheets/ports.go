package sheets

import (
	"context"

	"emprest/internal/core"
)

// Ports for outbound adapters.
type (
	// ScheduleWriter mirrors the installment schedule of every loan. Each call
	// replaces whatever the previous call wrote.
	ScheduleWriter interface {
		WriteSchedule(ctx context.Context, loans []core.Loan) error
	}
)
