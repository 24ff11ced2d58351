package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vanhieuu/mattermost-mobile/internal/api"
	"github.com/vanhieuu/mattermost-mobile/internal/config"
	"github.com/vanhieuu/mattermost-mobile/internal/db"
	"github.com/vanhieuu/mattermost-mobile/internal/event"
	"github.com/vanhieuu/mattermost-mobile/internal/notify"
	"github.com/vanhieuu/mattermost-mobile/internal/observ"
	"github.com/vanhieuu/mattermost-mobile/internal/remote"
	"github.com/vanhieuu/mattermost-mobile/internal/repository/postgres"
	enginesync "github.com/vanhieuu/mattermost-mobile/internal/sync"
	"github.com/vanhieuu/mattermost-mobile/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("prepare schema: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observ.NewMetrics(registry)

	store := postgres.NewStore(database.Pool())

	// Redis is optional: without it, change signals stay in-process.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis URL: %w", err)
		}
		redisClient = redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, notifications stay in-process", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	notifier := notify.NewNotifier(notify.NewHub(), redisClient, logger)

	session := remote.NewSession(cfg.AuthToken)
	if err := session.Valid(); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	fetcher := remote.NewClient(cfg.ServerURL, session, logger, metrics)

	engine := enginesync.NewEngine(store, fetcher, notifier, logger, metrics, enginesync.Options{
		CurrentUserID:  cfg.UserID,
		ThreadsEnabled: cfg.ThreadsEnabled,
	})
	defer engine.Close()

	views := &enginesync.ViewTracker{}

	// Each event is dispatched with a view snapshot taken at decision time.
	conn := ws.NewClient(cfg.WSURL, cfg.AuthToken, func(ctx context.Context, ev *event.Event) {
		engine.Dispatch(ctx, views.Snapshot(), ev)
	}, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Recovery())
	api.NewHandler(engine, conn, views, database.Health, logger).Register(srv, registry)

	admin := &http.Server{Addr: ":" + cfg.AdminPort, Handler: srv}
	go func() {
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server stopped", zap.Error(err))
		}
	}()
	defer admin.Shutdown(context.Background())

	logger.Info("starting syncd",
		zap.String("server", cfg.ServerURL),
		zap.String("admin_port", cfg.AdminPort),
		zap.String("env", cfg.Env),
		zap.Bool("threads_enabled", cfg.ThreadsEnabled),
	)

	if err := conn.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream: %w", err)
	}
	logger.Info("shutting down")
	return nil
}
