// Package server provides the HTTP server and routing for Signalist.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/signalist/signalist/internal/database"
	"github.com/signalist/signalist/internal/scheduler"
)

// RouteRegistrar mounts a module's routes
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// SessionMiddleware guards pages and resolves the signed-in user
type SessionMiddleware interface {
	Authenticate(next http.Handler) http.Handler
	RequireSession(next http.Handler) http.Handler
}

// DatabaseStatus is the lazy database handle as seen by the debug endpoints
type DatabaseStatus interface {
	Get(ctx context.Context) (*database.DB, error)
	State() database.State
	Name() string
	RedactedURI() string
}

// JobLister reports scheduled jobs
type JobLister interface {
	Entries() []scheduler.Entry
}

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Static    fs.FS
	Sessions  SessionMiddleware
	Database  DatabaseStatus
	Scheduler JobLister
	// API handlers are mounted under /api
	API   []RouteRegistrar
	Pages RouteRegistrar
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	_ = mime.AddExtensionType(".css", "text/css")
	_ = mime.AddExtensionType(".js", "application/javascript")

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		systemHandlers: NewSystemHandlers(cfg.Database, cfg.Scheduler, cfg.Log),
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if !cfg.DevMode {
		s.router.Use(middleware.Compress(5))
	}

	if cfg.Sessions != nil {
		s.router.Use(cfg.Sessions.RequireSession)
		s.router.Use(cfg.Sessions.Authenticate)
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	if cfg.Static != nil {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(cfg.Static)))
		s.router.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			fileServer.ServeHTTP(w, r)
		})
	}
	s.router.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		r.Get("/system/status", s.systemHandlers.HandleSystemStatus)
		r.Get("/debug/db", s.systemHandlers.HandleDebugDB)

		for _, h := range cfg.API {
			h.RegisterRoutes(r)
		}
	})

	if cfg.Pages != nil {
		cfg.Pages.RegisterRoutes(s.router)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
