package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/storyboard/internal/auth"
	"github.com/sundayezeilo/storyboard/internal/config"
	"github.com/sundayezeilo/storyboard/internal/db"
	"github.com/sundayezeilo/storyboard/internal/engagement"
	"github.com/sundayezeilo/storyboard/internal/server"
	"github.com/sundayezeilo/storyboard/internal/story"
)

// App holds the application dependencies and configuration.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DBPool *pgxpool.Pool
	Redis  *redis.Client
	Server *server.Server

	cancelBackground context.CancelFunc
}

// New initializes and returns a new App instance with all dependencies wired up.
// The durable store is required; the cache tier is not, and an unreachable
// Redis only means the service starts in degraded mode.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"version", cfg.Observability.ServiceVersion,
	)

	// Connect to database
	dbPool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(cfg.Database.URL()); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	cache := engagement.NewRedisCache(engagement.RedisCacheConfig{
		Client:  redisClient,
		Timeout: cfg.Redis.Timeout,
		Logger:  logger,
	})

	// Background work (cache probe, preload retries) outlives New but not
	// the process; Shutdown cancels it.
	backgroundCtx, cancel := context.WithCancel(context.Background())

	go cache.StartProbe(backgroundCtx, cfg.Redis.ProbeInterval)

	engagementStore := engagement.NewStore(dbPool, cfg.Database.Timeout)
	engagementSvc := engagement.NewService(engagement.ServiceConfig{
		Store:  engagementStore,
		Cache:  cache,
		Logger: logger,
	})

	if cfg.Preload.Enabled {
		preloader := engagement.NewPreloader(engagementStore, cache, logger)
		go preloader.Start(backgroundCtx, cfg.Preload.RetryInterval)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := auth.NewService(auth.NewRepository(dbPool), tokens)
	storySvc := story.NewService(story.NewRepository(dbPool))

	srv := server.New(cfg, logger, server.Handlers{
		Auth:       auth.NewHandler(authSvc, logger),
		Story:      story.NewHandler(storySvc, logger),
		Engagement: engagement.NewHandler(engagementSvc, logger),
		Tokens:     tokens,
	})

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	return &App{
		Config:           cfg,
		Logger:           logger,
		DBPool:           dbPool,
		Redis:            redisClient,
		Server:           srv,
		cancelBackground: cancel,
	}, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.cancelBackground != nil {
		a.cancelBackground()
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err)
		} else {
			a.Logger.Info("redis connection closed")
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Set pool configuration
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")

	return pool, nil
}
