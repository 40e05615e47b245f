package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"emprest/internal/log"
	"emprest/internal/services"

	"github.com/gorilla/mux"
)

type contextKey int

const requestIDKey contextKey = iota

// RequestIDFromContext returns the id assigned to the current request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Server serves the loan JSON API.
type Server struct {
	http.Server
	loans       *services.LoanService
	logger      *log.Logger
	structured  *log.StructuredLogger
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	shutdownOnce sync.Once
}

func NewServer(addr string, loans *services.LoanService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		loans:       loans,
		logger:      logger,
		structured:  log.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(log.Middleware(s.logger), s.withRequestLogging)
	r.NotFoundHandler = s.withRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	}))
	r.MethodNotAllowedHandler = s.withRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	}))

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/loans", s.handleListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans", s.handleCreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}", s.handleGetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", s.handleDeleteLoan).Methods(http.MethodDelete)
	api.HandleFunc("/loans/{id}/summary", s.handleLoanSummary).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/installments/{installmentID}/paid", s.handleSetPaid).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/installments/{installmentID}", s.handlePatchInstallment).Methods(http.MethodPatch)
	api.HandleFunc("/backup", s.handleExportBackup).Methods(http.MethodGet)
	api.HandleFunc("/backup/import", s.handleImportBackup).Methods(http.MethodPost)

	return r
}

// Shutdown stops background helpers and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
	})
	return s.Server.Shutdown(ctx)
}

// withRequestLogging assigns a request id, applies security headers and rate
// limiting to writes, and logs the completed request.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w)

		if detectSuspiciousRequest(r, s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			TooManyRequestsError().Write(rw)
		} else {
			next.ServeHTTP(rw, r)
		}

		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}
