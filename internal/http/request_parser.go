// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for reading and validating request bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"emprest/internal/core"
)

const (
	maxBodyBytes   = 1 << 20
	maxBackupBytes = 10 << 20
)

var errInvalidBody = errors.New("invalid request body")

// createLoanRequest accepts amounts either in cents or as decimal text such
// as "1234,56". Cents win when both are present.
type createLoanRequest struct {
	Name                   string  `json:"name"`
	PrincipalAmountCents   *int64  `json:"principalAmountCents"`
	PrincipalAmount        string  `json:"principalAmount"`
	TotalToPayCents        *int64  `json:"totalToPayCents"`
	TotalToPay             string  `json:"totalToPay"`
	InstallmentsCount      int     `json:"installmentsCount"`
	FirstDueDate           string  `json:"firstDueDate"`
	InterestRateMonthlyPct float64 `json:"interestRateMonthlyPct"`
	CETAnnualPct           float64 `json:"cetAnnualPct"`
}

func (req createLoanRequest) toInput() (core.NewLoanInput, error) {
	principal, err := parseAmount(req.PrincipalAmountCents, req.PrincipalAmount)
	if err != nil {
		return core.NewLoanInput{}, fmt.Errorf("principal: %w", err)
	}
	total, err := parseAmount(req.TotalToPayCents, req.TotalToPay)
	if err != nil {
		return core.NewLoanInput{}, fmt.Errorf("total to pay: %w", err)
	}
	return core.NewLoanInput{
		Name:                   sanitizeInput(req.Name),
		PrincipalAmountCents:   principal,
		TotalToPayCents:        total,
		InstallmentsCount:      req.InstallmentsCount,
		FirstDueDate:           core.Date(strings.TrimSpace(req.FirstDueDate)),
		InterestRateMonthlyPct: req.InterestRateMonthlyPct,
		CETAnnualPct:           req.CETAnnualPct,
	}, nil
}

type setPaidRequest struct {
	Paid *bool `json:"paid"`
}

type patchInstallmentRequest struct {
	PaidAmountCents *int64  `json:"paidAmountCents"`
	PaidAmount      string  `json:"paidAmount"`
	PaidDate        *string `json:"paidDate"`
}

func (req patchInstallmentRequest) empty() bool {
	return req.PaidAmountCents == nil && strings.TrimSpace(req.PaidAmount) == "" && req.PaidDate == nil
}

// parseAmount returns cents when set, otherwise parses text. Both missing
// yields 0 and leaves the rejection to validation.
func parseAmount(cents *int64, text string) (int64, error) {
	if cents != nil {
		return *cents, nil
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	return core.ParseDecimalToCents(text)
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and bodies over maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errInvalidBody)
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errInvalidBody)
	}
	return nil
}

// readBody reads the raw body up to limit bytes.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return data, nil
}
