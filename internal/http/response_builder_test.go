package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"emprest/internal/backup"
	"emprest/internal/core"
	"emprest/internal/services"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/x").
		Body(map[string]int{"n": 1}).
		Write(rr)

	if rr.Code != http.StatusCreated || rr.Header().Get("Location") != "/x" {
		t.Errorf("unexpected response %d %v", rr.Code, rr.Header())
	}
	if rr.Body.String() != "{\"n\":1}\n" {
		t.Errorf("body = %q", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	NewJSONResponse().Attachment("a.json").Raw([]byte(`[1]`)).Write(rr)
	if rr.Body.String() != "[1]" || rr.Header().Get("Content-Disposition") != `attachment; filename="a.json"` {
		t.Errorf("raw response %q %v", rr.Body.String(), rr.Header())
	}

	rr = httptest.NewRecorder()
	NewJSONResponse().Body(func() {}).Write(rr)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("unencodable body status = %d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
		known   bool
	}{
		{fmt.Errorf("%w: unexpected EOF", backup.ErrMalformedInput), http.StatusBadRequest, backup.ErrMalformedInput.Error(), true},
		{backup.ErrEmptyBackup, http.StatusBadRequest, backup.ErrEmptyBackup.Error(), true},
		{fmt.Errorf("principal: %w", core.ErrInvalidAmount), http.StatusBadRequest, "principal: invalid amount", true},
		{services.ErrLoanNotFound, http.StatusNotFound, "loan not found", true},
		{services.ErrInstallmentNotPaid, http.StatusConflict, "installment is not paid", true},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal server error", false},
	}
	for _, tt := range tests {
		status, message, known := statusFor(tt.err)
		if status != tt.status || message != tt.message || known != tt.known {
			t.Errorf("statusFor(%v) = %d %q %v, want %d %q %v", tt.err, status, message, known, tt.status, tt.message, tt.known)
		}
	}
}
