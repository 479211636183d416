// Package server exposes the ask and retrieve flows over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/phuslu/log"

	"lorerag/internal/domain"
	"lorerag/internal/service"
)

// Retriever is what the server needs from the loaded corpus.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
	Info() (domain.Manifest, bool)
}

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, question string) (service.Answer, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr           string
	CORSOrigins    []string
	RequestTimeout time.Duration
	DefaultTopK    int
}

// Server is the HTTP boundary. It is the only place errors become status
// codes.
type Server struct {
	cfg       Config
	retriever Retriever
	asker     Asker
	logger    *log.Logger
}

// New creates a server.
func New(cfg Config, retriever Retriever, asker Asker, logger *log.Logger) *Server {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 3
	}
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Server{cfg: cfg, retriever: retriever, asker: asker, logger: logger}
}

// Handler returns the routed handler with CORS, timeout and access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("POST /retrieve", s.handleRetrieve)

	var h http.Handler = mux
	if s.cfg.RequestTimeout > 0 {
		h = withTimeout(h, s.cfg.RequestTimeout)
	}
	h = s.withCORS(h)
	return s.withAccessLog(h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	allowAll := slices.Contains(s.cfg.CORSOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || slices.Contains(s.cfg.CORSOrigins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func withTimeout(next http.Handler, d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}
