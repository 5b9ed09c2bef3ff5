// Package api exposes the screening engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/models"
	"applicant-screening/internal/screening/conversation"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ApplicantHeader carries the authenticated applicant id, set by the gateway.
const ApplicantHeader = "X-Applicant-ID"

type Screening interface {
	Turn(ctx context.Context, userID string, req conversation.TurnRequest) (*conversation.TurnResponse, error)
	Reset(ctx context.Context, userID string) (*conversation.TurnResponse, error)
	History(ctx context.Context, userID string) ([]models.ChatLogEntry, error)
	StatusChanged(ctx context.Context, userID, status string) error
	Assessment(ctx context.Context, userID, jobID string) (*models.Assessment, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	screening      Screening
	readiness      map[string]Pinger
	maxUploadBytes int64
	errHandler     *errors.ErrorHandler
	logger         logger.Logger
}

func NewServer(screening Screening, readiness map[string]Pinger, maxUploadBytes int64, log logger.Logger) *Server {
	log = logger.ForComponent(log, "api")
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Server{
		screening:      screening,
		readiness:      readiness,
		maxUploadBytes: maxUploadBytes,
		errHandler:     errors.NewErrorHandler(log),
		logger:         log,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/screening/message", s.handleMessage)
	mux.HandleFunc("POST /api/screening/upload", s.handleUpload)
	mux.HandleFunc("GET /api/screening/history", s.handleHistory)
	mux.HandleFunc("POST /api/screening/reset", s.handleReset)
	mux.HandleFunc("PUT /api/applicants/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/applicants/{id}/assessments/{jobId}", s.handleAssessment)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.loggingMiddleware(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.readiness))
	status := http.StatusOK
	for name, p := range s.readiness {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	s.respondJSON(w, status, map[string]interface{}{"checks": checks})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", map[string]interface{}{"error": err})
	}
}

// respondError logs err and writes it with the status its code maps to.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr, _ := s.errHandler.Handle(err, map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	s.respondJSON(w, errors.HTTPStatus(stdErr.Code), map[string]interface{}{"error": stdErr})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}
		s.logger.Info("request handled", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}
