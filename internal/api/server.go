package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hackfest-platform/registration-engine/internal/allocation"
	"github.com/hackfest-platform/registration-engine/internal/cache"
	"github.com/hackfest-platform/registration-engine/internal/config"
	"github.com/hackfest-platform/registration-engine/internal/services"
	"github.com/hackfest-platform/registration-engine/internal/watch"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	engine         allocation.Engine
	titleCache     *cache.TitleCache
	registry       *services.Registry
	hub            *watch.Hub
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. titleCache, registry and hub may be
// nil; the corresponding endpoints degrade gracefully.
func NewServer(
	cfg config.ServerConfig,
	engine allocation.Engine,
	titleCache *cache.TitleCache,
	registry *services.Registry,
	hub *watch.Hub,
	adminAPIKey string,
) *Server {
	s := &Server{
		config:         cfg,
		engine:         engine,
		titleCache:     titleCache,
		registry:       registry,
		hub:            hub,
		authMiddleware: NewAuthMiddleware(adminAPIKey),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// Public registration API. Request and response shapes here are the
	// contract the registration form depends on; change them and every
	// deployed client breaks.
	r.Route("/api", func(r chi.Router) {
		r.Post("/validate-secret", s.handleValidateSecret)
		r.Post("/register", s.handleRegister)
		r.Get("/titles", s.handleListTitles)
		r.Get("/registration/{leaderEmail}", s.handleGetRegistration)

		// Admin API (protected by API key)
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware.Authenticate)

			r.Get("/groups", s.handleAdminListGroups)
			r.Post("/groups", s.handleAdminCreateGroup)
			r.Post("/titles", s.handleAdminCreateTitle)
			r.Get("/teams", s.handleAdminListTeams)
			r.Get("/watch", s.handleAdminWatch)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
