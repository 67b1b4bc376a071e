// Package api serves the optional read-only status endpoints. It observes
// the queue, dispatcher, and history but never submits jobs, so the
// two-task concurrency model of the session is untouched.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/cmdq/internal/dispatch"
	"github.com/mattjoyce/cmdq/internal/history"
)

// QueueStats reports bounded queue occupancy.
type QueueStats interface {
	Depth() int
	Capacity() int
}

// DispatcherStats reports the worker's current phase.
type DispatcherStats interface {
	State() dispatch.State
}

// HistoryReader reads recorded jobs for the current session.
type HistoryReader interface {
	Session() string
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Config holds status server settings.
type Config struct {
	Listen string
}

// Server is the read-only status HTTP server.
type Server struct {
	config     Config
	queue      QueueStats
	dispatcher DispatcherStats
	history    HistoryReader
	logger     *slog.Logger
	server     *http.Server
	startedAt  time.Time
}

// New creates a status server. history may be nil when no history DB is
// attached. A typed-nil *history.Store counts as nil too, so callers that
// wire the concrete pointer straight through still get the disabled path.
func New(config Config, q QueueStats, d DispatcherStats, h HistoryReader, logger *slog.Logger) *Server {
	if hs, ok := h.(*history.Store); ok && hs == nil {
		h = nil
	}
	return &Server{
		config:     config,
		queue:      q,
		dispatcher: d,
		history:    h,
		logger:     logger,
		startedAt:  time.Now(),
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("status server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("status server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/history", s.handleHistory)

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
