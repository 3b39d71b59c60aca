package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/clubhub/internal/auth"
	"github.com/hongminglow/clubhub/internal/config"
	"github.com/hongminglow/clubhub/internal/http/handlers"
	"github.com/hongminglow/clubhub/internal/middleware"
	"github.com/hongminglow/clubhub/internal/storage"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Users    storage.UserStore
	Posts    storage.PostStore
	Visits   storage.VisitStore
	Sessions storage.SessionRegistry
	Logger   *slog.Logger
	// Checks are reported by GET /health, keyed by dependency name.
	Checks map[string]handlers.HealthCheck
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, deps, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// The event stream clears its own write deadline.
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return &Server{inner: httpServer}
}

// Handler builds the routed handler with CORS and request logging applied.
func Handler(cfg config.Config, deps Deps, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	protect := middleware.RequireSession(tokenManager, deps.Sessions, logger)

	handlers.NewHealthHandler(time.Now(), deps.Checks).Register(mux)
	handlers.NewAuthHandler(deps.Users, deps.Sessions, tokenManager, &cfg, logger).Register(mux, protect)
	handlers.NewPostsHandler(deps.Posts, deps.Visits, logger).Register(mux, protect)
	handlers.NewUsersHandler(deps.Users, deps.Sessions, logger).Register(mux, protect)

	return middleware.Chain(mux, middleware.CORS(cfg.CORSOrigins), middleware.Logging(logger))
}

// Addr is the address the server listens on.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
