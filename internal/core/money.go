// Package core provides the loan data model, money and date primitives,
// the installment schedule generator and the loan summary projection.
//
// This file contains functions for converting between decimal amounts and
// integer cents, and for formatting cents as Brazilian Real.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var hundred = decimal.NewFromInt(100)

// ToCents converts a decimal amount to cents, rounding to the nearest cent.
// Non-finite input yields 0.
//
// The multiplication happens in decimal arithmetic so that amounts such as
// 1.005 do not lose their half cent to binary floating point.
func ToCents(amount float64) int64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return DecimalToCents(decimal.NewFromFloat(amount))
}

// DecimalToCents converts a decimal amount to cents with half-away-from-zero rounding.
func DecimalToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// ParseDecimalToCents converts a user-entered decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Zero is accepted; negative values and
// anything that is not a plain decimal number return ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,345") -> 1235, nil
//	ParseDecimalToCents("-1")     -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return DecimalToCents(d), nil
}

// FromCents returns the amount in currency units for display and form input.
// Use cents for calculations.
func FromCents(cents int64) float64 {
	return float64(cents) / 100.0
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatMoney formats cents as Brazilian Real, e.g. "R$ 1.234,56".
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	v := number.Decimal(FromCents(cents), number.MinFractionDigits(2), number.MaxFractionDigits(2))
	return sign + "R$ " + brl.Sprintf("%v", v)
}
