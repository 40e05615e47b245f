package http

import (
	"net/http"
	"strings"

	"emprest/internal/core"
	"emprest/internal/log"
	"emprest/internal/services"

	"github.com/gorilla/mux"
)

// fail writes the response for err and logs it when it is unexpected.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, message, known := statusFor(err)
	if !known {
		fields := log.NewFields().
			WithRequestID(RequestIDFromContext(r.Context())).
			WithErrorType(log.ErrorTypeInternal)
		s.structured.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, fields)
	}
	ErrorResponse(status, message).Write(w)
}

func withSummary(l core.Loan) services.LoanWithSummary {
	return services.LoanWithSummary{Loan: l, Summary: core.CalcLoanSummary(l)}
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.loans.ListLoans()).Write(w)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	l, err := s.loans.GetLoan(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Body(withSummary(l)).Write(w)
}

func (s *Server) handleLoanSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.loans.Summary(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, log.OpCreate)
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.fail(w, r, err, log.OpCreate)
		return
	}

	l, err := s.loans.CreateLoan(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, log.OpCreate)
		return
	}
	s.structured.LogLoanCreated(r.Context(), l.ID, l.Name, l.TotalToPayCents, l.InstallmentsCount)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/loans/"+l.ID).
		Body(withSummary(l)).
		Write(w)
}

func (s *Server) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	if err := s.loans.DeleteLoan(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPaid(w http.ResponseWriter, r *http.Request) {
	var req setPaidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, log.OpToggle)
		return
	}
	if req.Paid == nil {
		BadRequestError("paid is required").Write(w)
		return
	}

	vars := mux.Vars(r)
	l, err := s.loans.SetInstallmentPaid(r.Context(), vars["id"], vars["installmentID"], *req.Paid)
	if err != nil {
		s.fail(w, r, err, log.OpToggle)
		return
	}
	NewJSONResponse().Body(withSummary(l)).Write(w)
}

// handlePatchInstallment corrects the paid amount, the paid date or both
// for a paid installment. Both values are validated before either is applied.
func (s *Server) handlePatchInstallment(w http.ResponseWriter, r *http.Request) {
	var req patchInstallmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, log.OpUpdate)
		return
	}
	if req.empty() {
		BadRequestError("nothing to update: set paidAmountCents, paidAmount or paidDate").Write(w)
		return
	}

	vars := mux.Vars(r)
	loanID, installmentID := vars["id"], vars["installmentID"]

	var date core.Date
	if req.PaidDate != nil {
		date = core.Date(strings.TrimSpace(*req.PaidDate))
		if err := date.Validate(); err != nil {
			s.fail(w, r, err, log.OpUpdate)
			return
		}
	}

	var (
		l   core.Loan
		err error
	)
	if req.PaidAmountCents != nil || strings.TrimSpace(req.PaidAmount) != "" {
		cents, perr := parseAmount(req.PaidAmountCents, req.PaidAmount)
		if perr != nil {
			s.fail(w, r, perr, log.OpUpdate)
			return
		}
		if l, err = s.loans.SetPaidAmount(r.Context(), loanID, installmentID, cents); err != nil {
			s.fail(w, r, err, log.OpUpdate)
			return
		}
	}
	if req.PaidDate != nil {
		if l, err = s.loans.SetPaidDate(r.Context(), loanID, installmentID, date); err != nil {
			s.fail(w, r, err, log.OpUpdate)
			return
		}
	}
	NewJSONResponse().Body(withSummary(l)).Write(w)
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.loans.ExportBackup()
	if err != nil {
		s.fail(w, r, err, log.OpExport)
		return
	}
	NewJSONResponse().Attachment(filename).Raw(data).Write(w)
}

type importResponse struct {
	Mode      services.ImportMode `json:"mode"`
	Imported  int                 `json:"imported"`
	LoanCount int                 `json:"loanCount"`
}

// handleImportBackup takes the backup text as the raw body. The mode query
// parameter defaults to merge.
func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	mode, err := services.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.fail(w, r, err, log.OpImport)
		return
	}
	data, err := readBody(w, r, maxBackupBytes)
	if err != nil {
		s.fail(w, r, err, log.OpImport)
		return
	}

	n, err := s.loans.ImportBackup(r.Context(), data, mode)
	if err != nil {
		s.fail(w, r, err, log.OpImport)
		return
	}
	total := len(s.loans.ListLoans())
	s.structured.LogBackupImported(r.Context(), string(mode), n, total)

	NewJSONResponse().Body(importResponse{Mode: mode, Imported: n, LoanCount: total}).Write(w)
}
