package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/api/handler"
	"fintrack/internal/app/service"
	"fintrack/internal/common/security"
	"fintrack/internal/domain/repository"
	"fintrack/internal/platform/cache"
	"fintrack/internal/platform/config"
	"fintrack/internal/platform/database"
	"fintrack/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetDefault(logger.New(os.Stdout, logger.Config{Level: cfg.LogLevel, Component: "fintrack", JSON: cfg.LogJSON}))
	slog.Info("configuration loaded", "db_driver", cfg.DBDriver, "token_ttl", cfg.TokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Token Service
	tokens, err := security.NewTokenService(cfg.Algorithm, cfg.SecretKey, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("init token service: %w", err)
	}

	// 3. Initialize Database (migrations run first)
	store, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// 4. Initialize Redis
	rdb, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// 5. Initialize Repositories
	userRepo := repository.NewSQLUserRepository(store.Dialect)
	operationRepo := repository.NewSQLOperationRepository(store.Dialect)

	// 6. Initialize Services
	authService := service.NewAuthService(store, userRepo, tokens,
		cache.NewUserCache(rdb, cfg.UserCacheTTL), security.NewDenylist(rdb))
	operationService := service.NewOperationService(store, operationRepo)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(cfg.CORSAllowedOrigins, authService, operationService,
		handler.HealthCheck{Name: "database", Check: store.Ping},
		handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Serve until a signal arrives, then shut down gracefully
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
