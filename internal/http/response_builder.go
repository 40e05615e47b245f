// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"emprest/internal/backup"
	"emprest/internal/core"
	"emprest/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	raw        []byte
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets a value to be encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Raw sets an already encoded JSON body, written as is.
func (b *JSONResponseBuilder) Raw(data []byte) *JSONResponseBuilder {
	b.raw = data
	return b
}

// Attachment asks the client to save the body as filename.
func (b *JSONResponseBuilder) Attachment(filename string) *JSONResponseBuilder {
	return b.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	var payload []byte
	switch {
	case b.raw != nil:
		payload = b.raw
	case b.body != nil:
		data, err := json.Marshal(b.body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			return
		}
		payload = append(data, '\n')
	}

	w.WriteHeader(b.statusCode)
	if payload != nil {
		_, _ = w.Write(payload)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates an error response with the given status and message.
func ErrorResponse(status int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func MethodNotAllowedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed")
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
		Header("Retry-After", "60")
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// backupErrors carry messages meant for the user; their wrapped details are not.
var backupErrors = []error{
	backup.ErrMalformedInput,
	backup.ErrUnrecognizedFormat,
	backup.ErrEmptyBackup,
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrEmptyName,
	core.ErrInvalidInstallmentsCount,
	services.ErrInvalidImportMode,
	errInvalidBody,
}

// statusFor maps an error to a status code and client message. Unknown errors
// are internal and report false.
func statusFor(err error) (int, string, bool) {
	for _, target := range backupErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error(), true
		}
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, err.Error(), true
		}
	}
	switch {
	case errors.Is(err, services.ErrLoanNotFound), errors.Is(err, services.ErrInstallmentNotFound):
		return http.StatusNotFound, err.Error(), true
	case errors.Is(err, services.ErrInstallmentNotPaid):
		return http.StatusConflict, err.Error(), true
	}
	return http.StatusInternalServerError, "internal server error", false
}
