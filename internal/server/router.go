package server

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Amr-9/VanityMint/internal/handler"
	"github.com/Amr-9/VanityMint/internal/middleware"
)

// RouterConfig lists what the router mounts.
type RouterConfig struct {
	Health         *handler.HealthHandler
	Tokens         *handler.TokenHandler
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	Logger         *zap.Logger
}

// NewRouter builds the API routes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Healthz)
		r.Get("/readyz", cfg.Health.Readyz)
	}

	if cfg.Tokens != nil {
		r.Route("/api", func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}
			r.Get("/vanity", cfg.Tokens.Vanity)
			r.Post("/tokens", cfg.Tokens.CreateToken)
		})
	}

	return r
}
