package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"semanticheck/internal/infra/config"
	"semanticheck/internal/infra/metrics"
	"semanticheck/internal/infra/middleware"
	"semanticheck/internal/usecase"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server is the HTTP front end: the JSON API, the web UI, health and metrics,
// and optionally the WebSocket RPC gateway on /ws.
type Server struct {
	cfg      *config.Config
	analyzer *usecase.Analyzer
	metrics  *metrics.Metrics
	hub      *Hub
	logger   *slog.Logger

	mu        sync.Mutex
	httpSrv   *http.Server
	boundAddr string
	ready     chan struct{}
}

// NewServer creates a server for analyzer. m may be nil.
func NewServer(cfg *config.Config, analyzer *usecase.Analyzer, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		metrics:  m,
		logger:   logger,
		ready:    make(chan struct{}),
	}
	if cfg.Gateway.Enabled {
		s.hub = NewHub(NewAuthenticator(cfg.Gateway.Auth), logger)
		s.hub.SetCallTimeout(cfg.Server.RequestTimeout)
		RegisterAnalyzerMethods(s.hub, analyzer)
	}
	return s
}

// Handler builds the routed, middleware-wrapped handler. ctx bounds the
// lifetime of the rate limiter's background sweep.
func (s *Server) Handler(ctx context.Context) (http.Handler, error) {
	fsys, err := staticFS(s.cfg.Server.StaticDir)
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", serveIndex(fsys))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(fsys)))
	mux.HandleFunc("POST /analyze/local", s.handleAnalyzeLocal)
	mux.HandleFunc("POST /analyze/detailed", s.handleAnalyzeDetailed)
	mux.HandleFunc("POST /detect-ai", s.handleDetectAI)
	mux.HandleFunc("POST /detect-ai/file", s.handleDetectAIFile)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	if s.cfg.Metrics.Enabled && s.metrics != nil {
		mux.Handle("GET "+s.cfg.Metrics.Path, s.metrics.Handler())
	}
	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})

	route := func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" && pattern != "/" {
			return pattern
		}
		return "unmatched"
	}

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID(s.logger),
		middleware.AccessLog(s.logger, s.metrics, route),
		middleware.SecurityHeaders,
	}
	if rl := s.cfg.Server.RateLimit; rl.Enabled {
		mws = append(mws, middleware.RateLimit(ctx, middleware.RateLimitConfig{
			RequestsPerSecond: rl.RequestsPerSecond,
			Burst:             rl.Burst,
			TrustedProxies:    s.cfg.Server.TrustedProxies,
			OnLimit: func(w http.ResponseWriter, _ *http.Request) {
				writeDetail(w, http.StatusTooManyRequests, "Too many requests.")
			},
		}))
	}
	return middleware.Chain(mux, mws...), nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler(ctx)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.boundAddr = ln.Addr().String()
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("server started", "addr", s.boundAddr, "gateway", s.hub != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Stop closes WebSocket clients and gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}

	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// BoundAddr returns the address the server bound to. Only valid after Ready.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}
