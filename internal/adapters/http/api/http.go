// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	service "github.com/okian/tradedigest/internal/app"
	"github.com/okian/tradedigest/pkg/logger"
	"golang.org/x/time/rate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Defaults are the digest options used when a request leaves them out.
	Defaults() service.Params

	// Process digests an uploaded log and renders its report.
	Process(ctx context.Context, r io.Reader, p service.Params) (service.Summary, error)

	// Download returns the on-disk path of a report.
	Download(ctx context.Context, id string) (string, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	uploadHandler   *UploadHandler
	downloadHandler *DownloadHandler
	uploadLimiter   *rate.Limiter
	logger          logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxUploadBytes caps the body of POST /upload.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.uploadHandler.maxBytes = n
		}
	}
}

// WithUploadRateLimit allows rps uploads per second with bursts of burst; rps <= 0 disables it.
func WithUploadRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.uploadLimiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		uploadHandler:   NewUploadHandler(deps),
		downloadHandler: NewDownloadHandler(deps),
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.uploadHandler.logger = s.logger
	s.downloadHandler.logger = s.logger
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	upload := s.uploadHandler.HandleUpload
	if s.uploadLimiter != nil {
		upload = rateLimit(s.uploadLimiter, s.logger, upload)
	}
	r.Post("/upload", MetricsMiddleware(upload, "upload"))
	r.Get("/download/{id}", MetricsMiddleware(s.downloadHandler.HandleDownload, "download"))
}

// NewRouter returns a chi router with the common middleware stack installed.
func NewRouter(l logger.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewareStack(l)...)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, nil)
	})
	return r
}
