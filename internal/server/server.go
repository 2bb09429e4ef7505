package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"filestore/internal/analytics"
	"filestore/internal/store"
)

// BuildInfo is reported by /ready and the filestore_build_info metric.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

type Config struct {
	Addr  string // e.g. ":5000"
	Build BuildInfo

	Store     *store.Store
	Analytics *analytics.Engine
	Logger    *zap.Logger
	Metrics   *Metrics

	// MaxUploadBytes caps a single archive upload; 0 means no limit.
	MaxUploadBytes int64

	// RateLimit is the steady request rate allowed per client IP, in
	// requests per second. 0 disables limiting.
	RateLimit float64
	RateBurst int

	// Optional side effects of store mutations.
	Recorder EventRecorder
	Mirror   ObjectMirror
}

type Server struct {
	cfg        Config
	httpServer *http.Server
}

// New fills in defaults for anything cfg leaves unset and wires the routes.
// cfg.Store is required.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(cfg.Store, cfg.Build)
	}
	if cfg.Analytics == nil {
		cfg.Analytics = analytics.New(cfg.Store, analytics.WithLogger(cfg.Logger))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", http.RedirectHandler("/health", http.StatusFound))
	mux.Handle("GET /health", cfg.healthHandler())
	mux.Handle("GET /ready", cfg.readyHandler())
	mux.Handle("GET /metrics", cfg.Metrics.Handler())

	mux.Handle("POST /files", cfg.uploadHandler(false))
	mux.Handle("PUT /files", cfg.uploadHandler(true))
	mux.Handle("GET /files", cfg.listFilesHandler())
	mux.Handle("DELETE /files", cfg.deleteFilesHandler())

	mux.Handle("GET /wordcount", cfg.wordCountHandler())
	mux.Handle("GET /wordfrequency", cfg.wordFrequencyHandler())

	dupe := cfg.copyDupeHandler()
	for _, p := range []string{"/copydupe", "/checkdupe"} {
		mux.Handle("GET "+p, dupe)
		mux.Handle("POST "+p, dupe)
	}

	mux.Handle("POST /admin/reconcile", cfg.reconcileHandler())
	mux.Handle("GET /admin/verify", cfg.verifyHandler())
	mux.Handle("GET /admin/events", cfg.eventsHandler())

	// Wrap middleware: requestID -> logging -> rate limit -> security headers -> compression -> mux
	var handler http.Handler = mux
	handler = compressionMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	if cfg.RateLimit > 0 {
		handler = newRateLimiter(cfg.RateLimit, cfg.RateBurst).middleware(handler)
	}
	handler = loggingMiddleware(cfg.Logger, cfg.Metrics)(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{cfg: cfg, httpServer: s}
}

// Handler exposes the full middleware chain, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
