package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Amr-9/VanityMint/internal/config"
	"github.com/Amr-9/VanityMint/internal/handler"
	"github.com/Amr-9/VanityMint/internal/idempotency"
	"github.com/Amr-9/VanityMint/internal/middleware"
	"github.com/Amr-9/VanityMint/internal/server"
	"github.com/Amr-9/VanityMint/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a)
		},
	}
}

func runServe(parent context.Context, a *app) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log := a.cfg, a.logger
	log.Info("starting vanitymint api",
		zap.String("env", cfg.AppEnv),
		zap.Int("port", cfg.AppPort),
		zap.String("cluster", cfg.SolanaCluster),
	)

	sess, err := loadSession(ctx, cfg, log)
	if err != nil {
		return err
	}

	svc, closePinner, err := newTokenService(ctx, cfg, log, service.Options{
		DefaultMaxAttempts: cfg.APISearchMaxAttempts,
		LimitMaxAttempts:   cfg.APISearchMaxAttempts,
	})
	if err != nil {
		return err
	}

	store, checks, err := newIdempotencyStore(ctx, cfg, log)
	if err != nil {
		_ = closePinner()
		return err
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
		go limiter.Cleanup(ctx, 5*time.Minute)
	}

	router := server.NewRouter(server.RouterConfig{
		Health: handler.NewHealthHandler(checks),
		Tokens: handler.NewTokenHandler(handler.TokenHandlerConfig{
			Service:        svc,
			Session:        func(*http.Request) service.Session { return sess },
			Idempotency:    store,
			MaxUploadBytes: cfg.MaxUploadBytes,
			RequestTimeout: cfg.RequestTimeout,
			Logger:         log,
		}),
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
		RateLimiter:    limiter,
		Logger:         log,
	})

	srv := server.New(router, cfg.AppPort, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout, log)
	srv.OnShutdown("pinning", func(context.Context) error { return closePinner() })
	if rs, ok := store.(*idempotency.RedisStore); ok {
		srv.OnShutdown("redis", func(context.Context) error { return rs.Close() })
	}

	return srv.Run(ctx)
}

// newIdempotencyStore uses Redis when REDIS_URL is set and memory otherwise.
func newIdempotencyStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (idempotency.Store, map[string]handler.HealthChecker, error) {
	if cfg.RedisURL == "" {
		log.Info("using in-memory idempotency store")
		return idempotency.NewMemoryStore(cfg.IdempotencyTTL), nil, nil
	}

	rs, err := idempotency.NewRedisStore(ctx, cfg.RedisURL, cfg.IdempotencyTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("connected to redis")
	return rs, map[string]handler.HealthChecker{"redis": rs}, nil
}
