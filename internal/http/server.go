// Package http serves the booking JSON API and the live month stream.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"caribook/internal/auth"
	"caribook/internal/bookings"
	"caribook/internal/log"
	"caribook/internal/middleware/ratelimit"
	"caribook/internal/middleware/security"
	"caribook/internal/middleware/trace"
	"caribook/internal/services"
	"caribook/internal/store"
)

// Deps are the collaborators the handlers call.
type Deps struct {
	Events   *services.EventService
	Bookings *bookings.Repository
	Invoices *services.InvoiceService
	Auth     *auth.Service
	Artists  store.ArtistStore
	Labels   store.LabelStore
	// Ready reports whether the backend can serve requests. Nil means
	// always ready.
	Ready  func(context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server

	events   *services.EventService
	bookings *bookings.Repository
	invoices *services.InvoiceService
	auth     *auth.Service
	artists  store.ArtistStore
	labels   store.LabelStore
	ready    func(context.Context) error
	logger   *log.Logger

	limiter   *ratelimit.Limiter
	detector  *security.Detector
	headers   *security.HeadersMiddleware
	tracer    *trace.Middleware
	sessions  *sessionRegistry
	keepAlive time.Duration
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		events:    deps.Events,
		bookings:  deps.Bookings,
		invoices:  deps.Invoices,
		auth:      deps.Auth,
		artists:   deps.Artists,
		labels:    deps.Labels,
		ready:     deps.Ready,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  detector,
		headers:   security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:    trace.NewMiddleware(logger, detector.ExtractClientIP),
		sessions:  newSessionRegistry(),
		keepAlive: 15 * time.Second,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.Handle("GET /api/me", s.requireAuth(s.handleMe))

	mux.Handle("GET /api/events", s.requireAuth(s.handleListEvents))
	mux.Handle("POST /api/events", s.requireAuth(s.handleCreateEvent))
	mux.Handle("GET /api/events/stream", s.requireAuth(s.handleStream))
	mux.Handle("GET /api/events/{id}", s.requireAuth(s.handleGetEvent))
	mux.Handle("PUT /api/events/{id}", s.requireAuth(s.handleUpdateEvent))
	mux.Handle("DELETE /api/events/{id}", s.requireAuth(s.handleDeleteEvent))
	mux.Handle("GET /api/events/{id}/invoice", s.requireAuth(s.handleInvoice))
	mux.Handle("PUT /api/sessions/{id}/view", s.requireAuth(s.handleSessionView))
	mux.Handle("GET /api/summary", s.requireAuth(s.handleSummary))

	mux.Handle("GET /api/artists", s.requireAuth(s.handleListArtists))
	mux.Handle("POST /api/artists", s.requireAuth(s.handleCreateArtist))
	mux.Handle("GET /api/status-labels", s.requireAuth(s.handleListStatusLabels))
	mux.Handle("PUT /api/status-labels", s.requireAuth(s.handleSaveStatusLabels))
	mux.Handle("GET /api/form-options", s.requireAuth(s.handleFormOptions))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// middleware wraps the mux: tracing and request logging, security headers,
// suspicious request logging, then the POST rate limit.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(next)
	return s.tracer.Middleware(s.headers.Middleware(s.detect(limited)))
}

func (s *Server) detect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// requireAuth admits requests carrying a valid session token and puts the
// caller's profile in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, err := s.auth.Parse(bearerToken(r))
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected request without valid token",
				log.FieldPath, r.URL.Path,
				log.FieldError, err)
			UnauthorizedError("Unauthorized").Write(w)
			return
		}
		ctx := auth.WithProfile(r.Context(), profile)
		ctx = context.WithValue(ctx, log.LoggerContextKey,
			log.FromContext(ctx).With(log.FieldUserID, profile.UID, log.FieldRole, profile.Role))
		next(w, r.WithContext(ctx))
	})
}

// Shutdown closes live streams, stops the limiter and shuts the server
// down. It runs once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.sessions.closeAll()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	fmt.Fprintf(w, "# HELP caribook_http_requests_total Total HTTP requests served\n")
	fmt.Fprintf(w, "# TYPE caribook_http_requests_total counter\n")
	fmt.Fprintf(w, "caribook_http_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "# HELP caribook_http_last_response_seconds Duration of the last request\n")
	fmt.Fprintf(w, "# TYPE caribook_http_last_response_seconds gauge\n")
	fmt.Fprintf(w, "caribook_http_last_response_seconds %f\n", traceMetrics.LastResponseTime.Seconds())

	fmt.Fprintf(w, "# HELP caribook_rate_limit_hits_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE caribook_rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "caribook_rate_limit_hits_total %d\n", limitMetrics.TotalHits)
	fmt.Fprintf(w, "# HELP caribook_rate_limit_clients Clients tracked by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE caribook_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "caribook_rate_limit_clients %d\n", limitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP caribook_suspicious_requests_total Requests flagged as suspicious\n")
	fmt.Fprintf(w, "# TYPE caribook_suspicious_requests_total counter\n")
	fmt.Fprintf(w, "caribook_suspicious_requests_total %d\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP caribook_stream_sessions Open live month streams\n")
	fmt.Fprintf(w, "# TYPE caribook_stream_sessions gauge\n")
	fmt.Fprintf(w, "caribook_stream_sessions %d\n", s.sessions.len())

	if s.invoices != nil {
		stats := s.invoices.CacheStats()
		fmt.Fprintf(w, "# HELP caribook_invoice_cache_hits_total Invoice cache hits\n")
		fmt.Fprintf(w, "# TYPE caribook_invoice_cache_hits_total counter\n")
		fmt.Fprintf(w, "caribook_invoice_cache_hits_total %d\n", stats.Hits)
		fmt.Fprintf(w, "# HELP caribook_invoice_cache_misses_total Invoice cache misses\n")
		fmt.Fprintf(w, "# TYPE caribook_invoice_cache_misses_total counter\n")
		fmt.Fprintf(w, "caribook_invoice_cache_misses_total %d\n", stats.Misses)
		fmt.Fprintf(w, "# HELP caribook_invoice_cache_entries Rendered invoices held in cache\n")
		fmt.Fprintf(w, "# TYPE caribook_invoice_cache_entries gauge\n")
		fmt.Fprintf(w, "caribook_invoice_cache_entries %d\n", stats.Size)
	}

	fmt.Fprintf(w, "# HELP caribook_uptime_seconds Time since the server started\n")
	fmt.Fprintf(w, "# TYPE caribook_uptime_seconds gauge\n")
	fmt.Fprintf(w, "caribook_uptime_seconds %f\n", time.Since(s.startedAt).Seconds())
}
