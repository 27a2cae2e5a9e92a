// Package web provides the HTTP server and handlers for the catalog console.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JonMunkholm/catalogconsole/internal/config"
	"github.com/JonMunkholm/catalogconsole/internal/core"
	appmw "github.com/JonMunkholm/catalogconsole/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// contentSecurityPolicy allows product images from any https origin.
const contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' https: data:; font-src 'self'; form-action 'self'; frame-ancestors 'none'"

// Pinger reports whether the catalog API is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the catalog console.
type Server struct {
	cfg      *config.Config
	data     core.DataAccess
	pinger   Pinger
	sessions *SessionStore
	router   *chi.Mux
	server   *http.Server

	stop     context.CancelFunc
	stopOnce sync.Once
}

// NewServer creates a Server and starts its background janitors. pinger may
// be nil, in which case /readyz only reports the process as up.
func NewServer(cfg *config.Config, data core.DataAccess, pinger Pinger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:    cfg,
		data:   data,
		pinger: pinger,
		sessions: NewSessionStore(data, SessionOptions{
			TTL:          cfg.Console.SessionTTL,
			PageSize:     cfg.Console.ClampPageSize(cfg.Console.PageSize),
			CookieSecure: cfg.Console.CookieSecure,
		}),
		router: chi.NewRouter(),
		stop:   cancel,
	}

	go s.sessions.RunJanitor(ctx, cfg.Console.SweepInterval)

	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(appmw.Metrics)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/products", http.StatusFound)
	})

	// Save and create reach the catalog API; they get a tighter budget.
	mutations := func(r chi.Router) chi.Router { return r }
	if s.cfg.Rate.Enabled {
		mutationLimiter := newRateLimiter(ctx, s.cfg.Rate.MutationLimit, time.Minute)
		mutations = func(r chi.Router) chi.Router { return r.With(mutationLimiter.middleware) }
	}

	s.router.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleConsole)
		r.Get("/export.csv", s.handleExportCSV)

		// View transitions
		r.Post("/search", s.handleSearch)
		r.Post("/sort/{field}", s.handleSort)
		r.Post("/page/{direction}", s.handlePage)
		r.Post("/page-size", s.handlePageSize)
		r.Post("/reload", s.handleReload)

		// Detail and edit
		r.Post("/{id}/open", s.handleOpenDetail)
		r.Post("/detail/close", s.handleCloseDetail)
		r.Post("/detail/edit", s.handleBeginEdit)
		r.Post("/detail/cancel", s.handleCancelEdit)
		mutations(r).Post("/detail/save", s.handleSaveEdit)

		// Create
		r.Post("/new", s.handleOpenCreate)
		r.Post("/new/cancel", s.handleCancelCreate)
		mutations(r).Post("/create", s.handleCreate)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   s.cfg.Security.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
			AllowCredentials: true,
		}).Handler)
		r.Use(appmw.APIKeyAuth(&s.cfg.Security))

		r.Get("/view", s.handleAPIView)
		r.Get("/categories", s.handleAPICategories)
		r.Post("/categories/refresh", s.handleRefreshCategories)
	})
}

// Handler returns the root handler with tracing applied.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "catalogconsole",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr, "catalog", s.cfg.Catalog.BaseURL)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Close stops the background janitors without touching the listener.
func (s *Server) Close() {
	s.stopOnce.Do(s.stop)
}

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			if enableCSP {
				w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
// Its cleanup goroutine stops when ctx is done.
func newRateLimiter(ctx context.Context, rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
	go rl.cleanup(ctx)
	return rl
}

// cleanup removes stale visitor entries every window.
func (rl *rateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if rl.now().Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: now,
		}
		return true
	}

	// Reset tokens if window has passed
	if now.Sub(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = now
		return true
	}

	// Check if we have tokens left
	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
// TrustedRealIP has already rewritten RemoteAddr for proxied requests.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if !rl.allow(ip) {
			appmw.RateLimited()
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
