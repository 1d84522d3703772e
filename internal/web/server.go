// Package web exposes the assessment pipeline over HTTP: batch comparison
// and analysis endpoints, audio upload transcription, the live tracking
// API (REST and websocket), session retrieval, and the operational
// endpoints (health, readiness, metrics).
//
// The package only translates between the wire and [assess.Service]; no
// scoring or alignment logic lives here.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/oratio-labs/oratio/internal/assess"
	"github.com/oratio-labs/oratio/internal/config"
	"github.com/oratio-labs/oratio/internal/health"
	"github.com/oratio-labs/oratio/internal/observe"
	"github.com/oratio-labs/oratio/internal/sessionstore"
)

// Config carries the server's dependencies and listen settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// TLS enables HTTPS when non-nil.
	TLS *config.TLSConfig

	// Assess handles every assessment request. Required.
	Assess *assess.Service

	// Store backs the session retrieval endpoints. May be nil; those
	// endpoints then return 404.
	Store sessionstore.Store

	// Metrics instruments the HTTP layer. May be nil; a default set is
	// created.
	Metrics *observe.Metrics

	// Health serves /healthz and /readyz. May be nil; a checker-less
	// handler is created.
	Health *health.Handler

	// MaxUploadBytes caps audio upload size. Zero means 32 MiB.
	MaxUploadBytes int64
}

// Server is the HTTP front of the assessment service.
type Server struct {
	cfg     Config
	metrics *observe.Metrics
	srv     *http.Server
}

// New assembles the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Assess == nil {
		return nil, errors.New("web: assess service is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Health == nil {
		cfg.Health = health.New()
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 32 << 20
	}

	s := &Server{cfg: cfg, metrics: cfg.Metrics}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wired route tree, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/report", s.handleReport)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)

	mux.HandleFunc("POST /api/tracking", s.handlePrepare)
	mux.HandleFunc("POST /api/tracking/{id}/chunks", s.handleChunk)
	mux.HandleFunc("POST /api/tracking/{id}/finalize", s.handleFinalize)
	mux.HandleFunc("GET /api/tracking/{id}/live", s.handleLive)

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)

	s.cfg.Health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// Run serves until ctx is cancelled, then drains connections with a grace
// period.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheme := "http"
		if s.cfg.TLS != nil {
			scheme = "https"
		}
		slog.Info("http server listening", "addr", s.cfg.Addr, "scheme", scheme)

		var err error
		if s.cfg.TLS != nil {
			err = s.srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: serve: %w", err)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web: shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
