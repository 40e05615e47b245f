package google

import (
	"errors"
	"fmt"
	"strings"

	ports "emprest/internal/sheets"
)

// ErrForeignSheet is returned when the target sheet already holds data that
// the mirror did not write.
var ErrForeignSheet = errors.New("sheet header does not match the installment mirror")

// validateHeader accepts an empty first row or one equal to ports.Header.
// Cells are compared trimmed and case-insensitively since users may restyle
// the header.
func validateHeader(row []any) error {
	if isBlankRow(row) {
		return nil
	}
	for i, want := range ports.Header {
		got := ""
		if i < len(row) {
			got = cellText(row[i])
		}
		if !strings.EqualFold(got, want) {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrForeignSheet, i+1, got, want)
		}
	}
	return nil
}

func isBlankRow(row []any) bool {
	for _, cell := range row {
		if cellText(cell) != "" {
			return false
		}
	}
	return true
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
