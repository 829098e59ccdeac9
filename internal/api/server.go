// Package api exposes the dashboard and control endpoints for the watcher.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adelaroche/bosswatch/internal/boss"
	"github.com/adelaroche/bosswatch/internal/expedition"
	"github.com/adelaroche/bosswatch/internal/metrics"
	"github.com/adelaroche/bosswatch/internal/monitor"
)

// Expeditioner is the subset of the expedition controller the handlers need.
type Expeditioner interface {
	Start(ctx context.Context) bool
	Stop() bool
	Status() expedition.Status
}

// Server wires HTTP handlers to the snapshot cell and expedition controller.
type Server struct {
	router chi.Router
	cell   *monitor.Cell
	exped  Expeditioner
	clock  boss.Clock
	logger *zap.Logger

	// expedCtx parents expedition sessions started over HTTP, so they
	// outlive the request but die with the process.
	expedCtx context.Context
}

// NewServer constructs a Server with middleware and routes. exped may be nil
// when expedition automation is disabled.
func NewServer(
	cell *monitor.Cell,
	exped Expeditioner,
	clock boss.Clock,
	expedCtx context.Context,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cell:     cell,
		exped:    exped,
		clock:    clock,
		logger:   logger,
		expedCtx: expedCtx,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/", s.dashboard)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.getStatus)
	})
	r.Route("/expedition", func(r chi.Router) {
		r.Post("/start", s.startExpedition)
		r.Post("/stop", s.stopExpedition)
		r.Get("/status", s.expeditionStatus)
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

// readyz reports ready once at least one reading has been published.
func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.cell.Load().HasData {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "waiting for first poll"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusResponse is the wire shape of GET /api/status.
type statusResponse struct {
	Boss          *boss.StatusRecord `json:"boss,omitempty"`
	Others        []boss.BossEntry   `json:"others,omitempty"`
	Stale         bool               `json:"stale"`
	FailureStreak int                `json:"failure_streak,omitempty"`
	LastError     string             `json:"last_error,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at,omitzero"`
	ServerTime    time.Time          `json:"server_time"`
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.cell.Load()
	resp := statusResponse{
		Stale:         snap.Stale,
		FailureStreak: snap.FailureStreak,
		LastError:     snap.LastError,
		UpdatedAt:     snap.UpdatedAt,
		ServerTime:    s.clock.Now().UTC(),
	}
	if snap.HasData {
		rec := snap.Status.Record
		resp.Boss = &rec
		resp.Others = snap.Status.Others
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) startExpedition(w http.ResponseWriter, _ *http.Request) {
	if s.exped == nil {
		writeError(w, http.StatusNotFound, "expedition automation disabled")
		return
	}
	if !s.exped.Start(s.expedCtx) {
		writeError(w, http.StatusConflict, "expedition already running")
		return
	}
	writeJSON(w, http.StatusAccepted, s.exped.Status())
}

func (s *Server) stopExpedition(w http.ResponseWriter, _ *http.Request) {
	if s.exped == nil {
		writeError(w, http.StatusNotFound, "expedition automation disabled")
		return
	}
	if !s.exped.Stop() {
		writeError(w, http.StatusConflict, "expedition not running")
		return
	}
	writeJSON(w, http.StatusOK, s.exped.Status())
}

func (s *Server) expeditionStatus(w http.ResponseWriter, _ *http.Request) {
	if s.exped == nil {
		writeError(w, http.StatusNotFound, "expedition automation disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.exped.Status())
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
