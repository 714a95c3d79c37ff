package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lordalex/botilito/internal/config"
	handler "github.com/lordalex/botilito/internal/delivery/http"
	"github.com/lordalex/botilito/internal/notify"
	"github.com/lordalex/botilito/internal/registry"
	"github.com/lordalex/botilito/internal/remote"
	"github.com/lordalex/botilito/internal/store"
	storejson "github.com/lordalex/botilito/internal/store/jsonfile"
	storepg "github.com/lordalex/botilito/internal/store/postgres"
	storeredis "github.com/lordalex/botilito/internal/store/redis"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting botilito orchestration daemon")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	// Open the persisted job store
	jobStore, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open job store", zap.Error(err))
	}
	defer cleanup()

	// Remote service client
	client := remote.NewHTTPClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, logger)

	// Job registry and lifecycle driver
	reg := registry.New(registry.Config{
		PollInterval:        cfg.Registry.PollInterval,
		MaxPollInterval:     cfg.Registry.MaxPollInterval,
		MaxTransportRetries: cfg.Registry.MaxTransportRetries,
	}, client, jobStore, logger)
	if err := reg.Start(ctx); err != nil {
		logger.Fatal("Failed to start job registry", zap.Error(err))
	}
	defer reg.Shutdown()

	// Task notification synthesizer
	synth := notify.New(notify.Config{
		TaskInterval:  cfg.Notify.TaskInterval,
		InboxInterval: cfg.Notify.InboxInterval,
		InboxLimit:    cfg.Notify.InboxLimit,
	}, client, reg.Credential, logger)
	synth.Start(ctx)
	defer synth.Shutdown()

	// Initialize router
	router := handler.NewRouter(&handler.RouterDeps{
		Registry:    reg,
		Synthesizer: synth,
		Logger:      logger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Control API listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down botilito...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("botilito stopped")
}

// openStore builds the configured job store backend and returns it with a
// cleanup function for its connections.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "jsonfile":
		return storejson.NewJSONStore(cfg.Store.Path, logger), func() {}, nil

	case "redis":
		opts, err := goredis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis URL: %w", err)
		}
		rdb := goredis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("Connected to Redis")
		return storeredis.NewRedisStore(rdb, logger), func() { rdb.Close() }, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := storepg.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return storepg.NewPostgresStore(pool, logger), func() { pool.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
