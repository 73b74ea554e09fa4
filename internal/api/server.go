package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"docent/internal/logging"
	"docent/internal/metrics"
	"docent/internal/registry"
	"docent/internal/resolution"
)

const maxRequestBody = 12 << 20 // data: URLs of phone photos

// Resolver is the resolution pipeline used by the handlers.
type Resolver interface {
	Analyze(ctx context.Context, imageURL string) (resolution.Response, error)
	ResolveGuess(ctx context.Context, guess resolution.Guess) resolution.Response
	Snapshot(ctx context.Context) []registry.Entry
}

// RegistryStore is the write side of the registry.
type RegistryStore interface {
	Upsert(ctx context.Context, entry registry.Entry) (registry.Entry, error)
	Delete(ctx context.Context, id string) error
}

// Options configures the HTTP handler.
type Options struct {
	Resolver Resolver
	// Store enables the registry write routes when non-nil.
	Store   RegistryStore
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// APIToken guards registry writes; empty disables authentication.
	APIToken string
}

type handler struct {
	resolver Resolver
	store    RegistryStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewHandler builds the docent router.
func NewHandler(opts Options) http.Handler {
	h := &handler{
		resolver: opts.Resolver,
		store:    opts.Store,
		metrics:  opts.Metrics,
		logger:   logging.NewComponentLogger(opts.Logger, "api"),
	}

	r := chi.NewRouter()
	r.Use(h.recoverer)
	r.Use(requestID)
	r.Use(cors)
	r.Use(h.observe)

	r.Get("/metrics", h.metrics.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Post("/analyze", h.handleAnalyze)
		r.Post("/resolve", h.handleResolve)
		r.Get("/artifacts", h.handleListArtifacts)
		r.Get("/artifacts/{id}", h.handleGetArtifact)
		if h.store != nil {
			r.Group(func(r chi.Router) {
				r.Use(requireToken(opts.APIToken, h.logger))
				r.Post("/artifacts", h.handleUpsertArtifact)
				r.Put("/artifacts/{id}", h.handleUpsertArtifact)
				r.Delete("/artifacts/{id}", h.handleDeleteArtifact)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		h.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Server runs the HTTP API until its context is cancelled.
type Server struct {
	bind   string
	server *http.Server
	logger *slog.Logger
}

// NewServer wraps handler in an http.Server with conservative timeouts.
// WriteTimeout covers the vision call, so it is derived from visionTimeout.
func NewServer(bind string, handler http.Handler, visionTimeout time.Duration, logger *slog.Logger) *Server {
	writeTimeout := 30 * time.Second
	if visionTimeout > 0 {
		writeTimeout = visionTimeout*2 + 10*time.Second
	}
	return &Server{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run listens on the bind address and serves until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run with a caller-provided listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}
