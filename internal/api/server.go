// Package api provides the HTTP API server and handlers for the NextRead service.
package api

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nextreadapp/nextread-server/internal/auth"
	"github.com/nextreadapp/nextread-server/internal/http/response"
	"github.com/nextreadapp/nextread-server/internal/service"
	"github.com/nextreadapp/nextread-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	recommendations *service.RecommendationService
	search          *service.SearchService
	verifier        *auth.Verifier
	validator       *validation.Validator
	allowedOrigins  []string
	router          *chi.Mux
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	recommendations *service.RecommendationService,
	search *service.SearchService,
	verifier *auth.Verifier,
	allowedOrigins []string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		recommendations: recommendations,
		search:          search,
		verifier:        verifier,
		validator:       validation.New(),
		allowedOrigins:  allowedOrigins,
		router:          chi.NewRouter(),
		logger:          logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// Browsers reject a credentialed response paired with a wildcard
	// origin, so only concrete origins get credentials.
	allowCredentials := !slices.Contains(s.allowedOrigins, "*")
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Identity-provider webhook (no auth; the provider calls it).
	s.router.Post("/webhooks/identity", s.handleIdentityWebhook)

	// Everything else requires a verified identity token.
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/recommend", func(r chi.Router) {
			r.Post("/", s.handleRecommend)
			r.Post("/retry", s.handleRetry)
			r.Get("/count", s.handleRecommendCount)
		})

		r.Get("/history", s.handleHistory)
		r.Get("/search", s.handleSearch)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
