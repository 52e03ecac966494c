// Package http exposes the day store and the aggregation engine over a
// JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"daytracker/internal/aggregate"
	"daytracker/internal/cache"
	"daytracker/internal/log"
	"daytracker/internal/metrics"
	"daytracker/internal/middleware/ratelimit"
	"daytracker/internal/middleware/security"
	"daytracker/internal/middleware/trace"
	"daytracker/internal/records"
)

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	// Ready probes the store for /readyz. Nil means always ready.
	Ready             func(ctx context.Context) error
	StoreTimeout      time.Duration
	RateLimitPerMin   int
	CORSAllowedOrigin string
	DayCacheSize      int
	DayCacheTTL       time.Duration
	Logger            *log.Logger
}

type Server struct {
	http.Server
	store        records.Store
	engine       *aggregate.Engine
	ready        func(ctx context.Context) error
	storeTimeout time.Duration
	days         *cache.DayCache
	caches       *cache.Manager
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	logger       *log.Logger
	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around store.
func NewServer(addr string, store records.Store, opts Options) *Server {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.DayCacheSize <= 0 {
		opts.DayCacheSize = 256
	}
	if opts.DayCacheTTL <= 0 {
		opts.DayCacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		store:        store,
		engine:       aggregate.NewEngine(store),
		ready:        opts.Ready,
		storeTimeout: opts.StoreTimeout,
		days:         cache.NewDayCache(opts.DayCacheSize, opts.DayCacheTTL),
		caches:       cache.NewManager(),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMin}),
		detector:     security.NewDetector(),
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		startedAt:    time.Now(),
	}
	s.caches.Register(s.days)
	s.caches.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.Handle("POST /api/day", s.api(s.handleSaveDay))
	mux.Handle("GET /api/day", s.api(s.handleListMonth))
	mux.Handle("GET /api/day/{date}", s.api(s.handleGetDay))

	mux.Handle("GET /api/analytics/hours", s.api(s.handleHours))
	mux.Handle("GET /api/analytics/distribution", s.api(s.handleHours))
	mux.Handle("GET /api/analytics/spend", s.api(s.handleSpend))
	mux.Handle("GET /api/analytics/comments", s.api(s.handleComments))
	mux.Handle("GET /api/analytics/overview", s.api(s.handleOverview))

	mux.Handle("GET /api/export/{kind}", s.api(s.handleExport))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	headersCfg := security.DefaultHeadersConfig()
	headersCfg.AllowedOrigin = opts.CORSAllowedOrigin
	headers := security.NewHeadersMiddleware(headersCfg)
	tracer := trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	// The mux must receive the request pointer created by the tracer so the
	// matched pattern is visible to it; the middleware in between pass r as is.
	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// api applies per-client rate limiting to a JSON endpoint.
func (s *Server) api(h http.HandlerFunc) http.Handler {
	return s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", Reason: "rate_limited"})
	})(h)
}

// storeContext bounds a store call by the configured timeout.
func (s *Server) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := s.storeContext(r.Context())
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"checks": map[string]string{"store": err.Error()},
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]any{
			"store":          "ok",
			"day_cache":      s.days.Size(),
			"active_clients": s.limiter.ActiveClients(),
		},
	})
}
