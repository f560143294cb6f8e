package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/metrics"
	"github.com/JakeFAU/brandprobe/internal/wizard"
)

// JobDispatcher queues batch jobs and aborts running ones.
type JobDispatcher interface {
	Enqueue(ctx context.Context, item brand.QueueItem) error
	Cancel(jobID string) bool
}

// ReadinessCheck reports whether a downstream dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Options tune request handling.
type Options struct {
	AuthEnabled    bool
	APIKey         string
	RequestTimeout time.Duration
	MaxJobURLs     int
}

// Deps are the collaborators behind the handlers. Jobs and Wizard routes are mounted only when configured.
type Deps struct {
	Extractor  brand.Extractor
	JobStore   brand.JobStore
	Dispatcher JobDispatcher
	Wizard     *wizard.Manager
	IDs        brand.IDGenerator
	Clock      brand.Clock
	Readiness  map[string]ReadinessCheck
}

// Server wires HTTP handlers to the extraction service, job pipeline, and wizard.
type Server struct {
	router chi.Router
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.MaxJobURLs <= 0 {
		opts.MaxJobURLs = 100
	}
	s := &Server{deps: deps, opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(corsMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if opts.AuthEnabled {
			r.Use(apiKeyMiddleware(opts.APIKey))
		}
		r.Post("/extract", s.extract)
		if deps.JobStore != nil && deps.Dispatcher != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", s.submitJob)
				r.Route("/{job_id}", func(r chi.Router) {
					r.Get("/status", s.getJobStatus)
					r.Get("/result", s.getJobResult)
					r.Post("/cancel", s.cancelJob)
				})
			})
		}
		if deps.Wizard != nil {
			r.Route("/wizard", func(r chi.Router) {
				r.Post("/", s.createSession)
				r.Route("/{session_id}", func(r chi.Router) {
					r.Get("/", s.getSession)
					r.Patch("/", s.patchSession)
					r.Post("/refresh", s.refreshSession)
					r.Post("/confirm", s.confirmSession)
				})
			})
		}
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	failures := map[string]string{}
	for name, check := range s.deps.Readiness {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		s.logger.Warn("readiness check failed", zap.Any("failures", failures))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failures": failures})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
