package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"upendo/backend/internal/cache"
	"upendo/backend/internal/config"
	"upendo/backend/internal/events"
	"upendo/backend/internal/httpapi"
	"upendo/backend/internal/lock"
	"upendo/backend/internal/logger"
	"upendo/backend/internal/metrics"
	"upendo/backend/internal/service"
	"upendo/backend/internal/store"
	"upendo/backend/internal/store/memory"
	pgstore "upendo/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "upendo-backend",
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		zlog.Fatal("invalid security configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if cfg.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				zlog.Fatal("schema migration failed", zap.Error(err))
			}
			zlog.Info("schema migrated")
		}
		repo = pg
		closers = append(closers, pg.Close)
		zlog.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded(zlog)
		zlog.Info("repository: in-memory")
	}

	var (
		summaryCache cache.SummaryCache = cache.NewMemorySummaryCache()
		locker       lock.Locker        = lock.Noop{}
	)
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Warn("redis unavailable, using in-process cache and no sale locks", zap.Error(err))
			_ = rdb.Close()
		} else {
			summaryCache = cache.NewRedisSummaryCache(rdb)
			locker = lock.NewRedisLocker(rdb, time.Duration(cfg.LockTTLSeconds)*time.Second, zlog)
			closers = append(closers, rdb.Close)
			zlog.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		zlog.Info("cache: in-memory")
	}

	m := metrics.New(cfg.MetricsNamespace)
	bus := events.NewBus(zlog)
	bus.Subscribe(cache.InvalidateOnCommit(summaryCache, zlog))
	bus.Subscribe(m.Observe)

	svc := service.New(repo, service.Options{
		Bus:             bus,
		SummaryCache:    summaryCache,
		SummaryCacheTTL: time.Duration(cfg.SummaryCacheTTLSeconds) * time.Second,
		Locker:          locker,
		Logger:          zlog,
	})
	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo, zlog)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Metrics:       m,
		Logger:        zlog,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zlog.Info("bakery backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			zlog.Error("close error", zap.Error(err))
		}
	}

	zlog.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.Environment == "production" && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set in production")
	}
	return nil
}
