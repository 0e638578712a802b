// Package api exposes the HTTP interface for the audit service.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-auditor/internal/audit"
	"github.com/JakeFAU/seo-auditor/internal/dispatcher"
	"github.com/JakeFAU/seo-auditor/internal/report"
)

// Server wires HTTP handlers to the dispatcher and store.
type Server struct {
	router     chi.Router
	store      audit.Store
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store audit.Store, d *dispatcher.Dispatcher, logger *zap.Logger) *Server {
	s := &Server{
		store:      store,
		dispatcher: d,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/audits", func(r chi.Router) {
			r.Post("/", s.submitAudit)
			r.Route("/{audit_id}", func(r chi.Router) {
				r.Get("/", s.getAudit)
				r.Get("/results", s.getResults)
				r.Get("/report", s.getReport)
				r.Post("/cancel", s.cancelAudit)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The store is the only hard dependency; probe it with a lookup
	// that is allowed to miss.
	if _, err := s.store.GetAudit(r.Context(), "readiness-probe"); err != nil &&
		strings.Contains(err.Error(), "connect") {
		s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitRequest struct {
	URL string `json:"url"`
}

func (s *Server) submitAudit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "body must be JSON with a url field")
		return
	}

	rec, err := s.dispatcher.Submit(r.Context(), req.URL)
	if err != nil {
		if strings.Contains(err.Error(), "invalid root url") {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.Contains(err.Error(), "queue full") {
			s.writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"audit_id": rec.ID,
		"status":   string(rec.Status),
	})
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	auditID := chi.URLParam(r, "audit_id")
	rec, err := s.store.GetAudit(r.Context(), auditID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "audit not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	auditID := chi.URLParam(r, "audit_id")
	if !s.requireComplete(w, r, auditID) {
		return
	}
	result, err := s.store.GetResult(r.Context(), auditID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "result not found")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	auditID := chi.URLParam(r, "audit_id")
	if !s.requireComplete(w, r, auditID) {
		return
	}
	result, err := s.store.GetResult(r.Context(), auditID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "result not found")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if err := report.NewMarkdownWriter(w).Write(result); err != nil {
		s.logger.Error("report render failed", zap.Error(err))
	}
}

// requireComplete answers 404 for unknown audits and 409 for audits
// that have not finished yet.
func (s *Server) requireComplete(w http.ResponseWriter, r *http.Request, auditID string) bool {
	rec, err := s.store.GetAudit(r.Context(), auditID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "audit not found")
		return false
	}
	if rec.Status != audit.StatusComplete {
		s.writeError(w, http.StatusConflict, "audit is "+string(rec.Status))
		return false
	}
	return true
}

func (s *Server) cancelAudit(w http.ResponseWriter, r *http.Request) {
	auditID := chi.URLParam(r, "audit_id")
	if err := s.dispatcher.Cancel(r.Context(), auditID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.writeError(w, http.StatusNotFound, "audit not found")
			return
		}
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"audit_id": auditID,
		"status":   string(audit.StatusCanceled),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
