// Package api provides the HTTP API server and handlers for the DevFlow application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/devflowapp/devflow-server/internal/config"
	"github.com/devflowapp/devflow-server/internal/events"
	"github.com/devflowapp/devflow-server/internal/ratelimit"
	"github.com/devflowapp/devflow-server/internal/store"
	"github.com/devflowapp/devflow-server/internal/version"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store            *store.Store
	services         *Services
	eventsHandler    *events.Handler
	router           *chi.Mux
	api              huma.API
	logger           *slog.Logger
	authRateLimiter  *ratelimit.KeyedRateLimiter
	writeRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, eventsHandler *events.Handler, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		store:            st,
		services:         services,
		eventsHandler:    eventsHandler,
		router:           chi.NewRouter(),
		logger:           logger,
		authRateLimiter:  ratelimit.PerMinute(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst),
		writeRateLimiter: ratelimit.PerMinute(cfg.RateLimit.WritePerMinute, cfg.RateLimit.WriteBurst),
	}

	s.setupMiddleware(cfg)
	s.setupAPI()
	s.setupRawRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown releases server-owned resources. The HTTP listener itself is
// owned by the caller.
func (s *Server) Shutdown() {
	s.authRateLimiter.Stop()
	s.writeRateLimiter.Stop()
}

// setupMiddleware configures the middleware stack. Order matters: the auth
// middleware must run before any handler so GetUserID works everywhere, and
// the rate limiters run before huma so limited requests never reach it.
func (s *Server) setupMiddleware(cfg *config.Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(authMiddleware(s.services.Auth))
	s.router.Use(rateLimitByIP(s.authRateLimiter, "/api/v1/auth/", s.logger))
	s.router.Use(rateLimitWrites(s.writeRateLimiter, "/api/v1/questions", s.logger))
}

// setupAPI creates the huma API and registers all operation handlers.
func (s *Server) setupAPI() {
	humaConfig := huma.DefaultConfig("DevFlow API", version.Server)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerInstanceRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerQuestionRoutes()
	s.registerAnswerRoutes()
	s.registerTagRoutes()
	s.registerAdminBackupRoutes()
	s.registerAdminStatsRoutes()
}

// setupRawRoutes registers the handlers that bypass huma: streaming and
// binary responses the envelope transformer must not wrap.
func (s *Server) setupRawRoutes() {
	s.router.Get("/api/v1/events", s.handleEvents)
	s.router.Get("/api/v1/users/{id}/avatar", s.handleGetAvatar)
	s.router.Get("/api/v1/admin/snapshot", s.handleDownloadSnapshot)
}

// rateLimitWrites limits mutating requests under prefix; reads pass through.
func rateLimitWrites(limiter *ratelimit.KeyedRateLimiter, prefix string, logger *slog.Logger) func(http.Handler) http.Handler {
	mutating := rateLimitByIP(limiter, prefix, logger)
	return func(next http.Handler) http.Handler {
		limited := mutating(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
