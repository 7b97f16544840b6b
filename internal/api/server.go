package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/deck-winrate/internal/api/response"
	"github.com/ramonehamilton/deck-winrate/internal/api/websocket"
	"github.com/ramonehamilton/deck-winrate/internal/charts"
	"github.com/ramonehamilton/deck-winrate/internal/metrics"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	port       int
	config     *Config

	// WebSocket hub for live calculations and profile broadcasts
	wsHub *websocket.Hub

	calculator *winrate.Calculator
	metrics    *metrics.Recorder
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Port           int
	AllowedOrigins []string
	RateLimit      float64       // Requests per second across all clients (0 = unlimited)
	RateBurst      int           // Burst size for the limiter
	RequestTimeout time.Duration // Per-request timeout
	Chart          charts.ChartConfig
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		RateLimit:      20,
		RateBurst:      40,
		RequestTimeout: 30 * time.Second,
		Chart:          charts.DefaultChartConfig(),
	}
}

// Deps are the collaborators shared with the rest of the process.
// Zero fields take defaults.
type Deps struct {
	Calculator *winrate.Calculator
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg *Config, deps Deps) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.Calculator == nil {
		deps.Calculator = winrate.NewCalculator(winrate.DefaultOptions())
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRecorder()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		router:     chi.NewRouter(),
		port:       cfg.Port,
		config:     cfg,
		calculator: deps.Calculator,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}

	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	s.wsHub = websocket.NewHub(websocket.HubConfig{
		Calculator:  deps.Calculator,
		Metrics:     deps.Metrics,
		CheckOrigin: originChecker(cfg.AllowedOrigins),
		Logger:      deps.Logger,
	})

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	// Request ID for tracing
	s.router.Use(middleware.RequestID)

	// Real IP detection
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(middleware.Logger)

	// Panic recovery
	s.router.Use(middleware.Recoverer)

	// Request timeout
	if s.config.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	// CORS configuration
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(s.rateLimitMiddleware)

	// Content-Type enforcement for POST only
	s.router.Use(s.jsonContentTypeMiddleware)
}

// rateLimitMiddleware rejects requests beyond the configured global rate.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			response.TooManyRequests(w, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// jsonContentTypeMiddleware enforces application/json content-type for requests with bodies.
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// originChecker accepts WebSocket upgrades from the same origins as CORS.
// Requests without an Origin header (non-browser clients) are accepted, and
// an empty list allows every origin as it does for go-chi/cors.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, pattern := range allowed {
			if matchOrigin(pattern, origin) {
				return true
			}
		}
		return false
	}
}

// matchOrigin matches origin against a pattern with at most one "*" wildcard,
// the same form go-chi/cors accepts.
func matchOrigin(pattern, origin string) bool {
	if pattern == "*" {
		return true
	}
	prefix, suffix, found := strings.Cut(pattern, "*")
	if !found {
		return strings.EqualFold(pattern, origin)
	}
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) &&
		strings.HasSuffix(origin, suffix)
}

// Start starts the WebSocket hub and serves HTTP until the server is shut
// down. It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}
	return s.Serve(ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	go s.wsHub.Run()

	s.logger.Info("API server starting", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the API server and the WebSocket hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()

	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the root HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}

// WebSocketHub returns the WebSocket hub for external integration.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}

// NewProfileObserver creates an observer that broadcasts watched profile
// results to WebSocket clients.
func (s *Server) NewProfileObserver() *websocket.ProfileObserver {
	return websocket.NewProfileObserver(s.wsHub, s.metrics, s.logger)
}
