package core

// CreateInstallments splits totalCents into count monthly installments.
//
// Every installment gets floor(totalCents/count) except the last one, which
// also absorbs the remainder, so the expected amounts always sum to exactly
// totalCents. Installment i is due firstDueDate plus i months. A count of
// zero or less yields no installments.
func CreateInstallments(ids IDGenerator, count int, firstDueDate Date, totalCents int64) []Installment {
	if count <= 0 {
		return []Installment{}
	}

	n := int64(count)
	base := floorDiv(totalCents, n)
	remainder := totalCents - base*n

	out := make([]Installment, count)
	for i := range out {
		expected := base
		if i == count-1 {
			expected += remainder
		}
		out[i] = Installment{
			ID:                  ids.NewID(),
			Number:              i + 1,
			DueDate:             AddMonthsISO(firstDueDate, i),
			ExpectedAmountCents: expected,
		}
	}
	return out
}

// floorDiv rounds toward negative infinity, unlike Go's truncating division.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
