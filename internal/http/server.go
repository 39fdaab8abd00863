package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "finreport/internal/log"
	"finreport/internal/services"
)

// ReadyFunc reports whether a dependency can serve requests.
type ReadyFunc func(ctx context.Context) error

// Options configures optional server behavior.
type Options struct {
	// Ready is consulted by /readyz; nil means always ready.
	Ready ReadyFunc
	// RateLimit bounds export and publish requests per client per minute.
	RateLimit int
}

type Server struct {
	http.Server
	reports     *services.ReportService
	ready       ReadyFunc
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *applog.Logger
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, reports *services.ReportService, opts Options) *Server {
	mux := http.NewServeMux()
	logger := applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.Default().Handler(),
	})

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		reports:     reports,
		ready:       opts.Ready,
		rateLimiter: newRateLimiter(opts.RateLimit, time.Minute),
		metrics:     &securityMetrics{},
		logger:      logger,
		started:     time.Now(),
	}
	go s.rateLimiter.startCleanup(5 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.withSecurityHeaders(s.handleMetrics, false))

	mux.HandleFunc("GET /api/reports", s.withSecurityHeaders(s.handleReport, false))
	mux.HandleFunc("GET /api/reports/chart", s.withSecurityHeaders(s.handleChart, false))
	mux.HandleFunc("GET /api/reports/outline", s.withSecurityHeaders(s.handleOutline, false))
	mux.HandleFunc("GET /api/reports/filters", s.withSecurityHeaders(s.handleFilters, false))
	mux.HandleFunc("GET /api/reports/export", s.withSecurityHeaders(s.handleExport, true))
	mux.HandleFunc("POST /api/reports/publish", s.withSecurityHeaders(s.handlePublish, true))

	return s
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withSecurityHeaders adds security headers, a request id, optional rate
// limiting and completion logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc, limited bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		logger := s.logger.With(applog.FieldRequestID, requestID)
		ctx := applog.WithLogger(r.Context(), logger)
		r = r.WithContext(ctx)

		h := w.Header()
		h.Set("X-Request-ID", requestID)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			applog.NewStructuredLogger(logger).LogHTTPEnd(ctx, r, rec.status, time.Since(start).Milliseconds(), clientIP)
		}()

		if reason, ok := detectSuspiciousRequest(r, s.metrics); ok {
			logger.WarnContext(ctx, "Suspicious request",
				"reason", reason,
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
		}

		if limited && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			h.Set("Retry-After", "60")
			writeError(rec, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}

		next(rec, r)
	}
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
