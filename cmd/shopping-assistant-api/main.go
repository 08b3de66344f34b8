// Package main provides the shopping assistant API server entrypoint.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/assistant"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/cache"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/catalog"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/config"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/conversation"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/embedding"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/llm"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("catalog", cfg.Catalog.Path).
		Str("database", cfg.Database.Driver).
		Msg("Starting shopping assistant API")

	deps, cleanup, err := buildDeps(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer cleanup()

	router := NewRouter(logger, deps, cfg.Server.ReadTimeout)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}

// buildDeps constructs the pipeline: cache, embedder, catalog index, LLM
// client, conversation store, and the coordinator.
func buildDeps(cfg *config.Config, logger *observability.Logger) (AppDeps, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	cacheClient, err := buildCache(cfg, logger)
	if err != nil {
		return AppDeps{}, cleanup, err
	}
	cleanups = append(cleanups, func() { _ = cacheClient.Close() })

	embedClient, err := embedding.NewClient(embedding.Config{
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})
	if err != nil {
		return AppDeps{}, cleanup, fmt.Errorf("create embedding client: %w", err)
	}

	embedder := embedding.NewCachedEmbedder(embedClient, cacheClient, cfg.Cache.TTL)

	products, err := catalog.LoadProducts(cfg.Catalog.Path)
	if err != nil {
		return AppDeps{}, cleanup, fmt.Errorf("load catalog: %w", err)
	}

	index, err := catalog.BuildIndex(context.Background(), products, embedder, catalog.IndexConfig{
		BatchSize: cfg.Embedding.BatchSize,
		Logger:    logger,
	})
	if err != nil {
		return AppDeps{}, cleanup, fmt.Errorf("build catalog index: %w", err)
	}

	completer, err := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return AppDeps{}, cleanup, fmt.Errorf("create llm client: %w", err)
	}

	db, err := sql.Open(sqlDriver(cfg), cfg.DatabaseDSN())
	if err != nil {
		return AppDeps{}, cleanup, fmt.Errorf("open database: %w", err)
	}
	cleanups = append(cleanups, func() { _ = db.Close() })

	if cfg.Database.Driver == "sqlite" {
		db.SetMaxOpenConns(cfg.Database.SQLite.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(cfg.Database.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.Postgres.ConnMaxLifetime)
	}

	store := conversation.NewStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		return AppDeps{}, cleanup, fmt.Errorf("migrate database: %w", err)
	}

	coordinator := assistant.NewCoordinator(
		assistant.NewClassifier(completer, logger),
		assistant.NewRetriever(index, logger),
		assistant.NewGrounder(completer, logger),
		logger,
	)

	return AppDeps{
		Coordinator: coordinator,
		Sessions:    conversation.NewSessionManager(cfg.Conversation.MaxHistoryTurns),
		Store:       store,
	}, cleanup, nil
}

func buildCache(cfg *config.Config, logger *observability.Logger) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, falling back to memory cache")
			return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
		}
		return client, nil
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
}

func sqlDriver(cfg *config.Config) string {
	if cfg.Database.Driver == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}
