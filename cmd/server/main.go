package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tavola-pos/backoffice/internal/config"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/tavola-pos/backoffice/internal/lock"
	"github.com/tavola-pos/backoffice/internal/logging"
	"github.com/tavola-pos/backoffice/internal/router"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, os.Stdout)

	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
		logger.Info("migrations applied")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("unable to create database pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatalf("unable to ping database: %v", err)
	}
	logger.Info("connected to database")

	var locker lock.Locker = lock.Noop{}
	if cfg.RedisAddress != "" {
		rdb, err := lock.Connect(ctx, cfg.RedisAddress)
		if err != nil {
			logger.Fatalf("unable to connect to redis at %s: %v", cfg.RedisAddress, err)
		}
		defer func(rdb *redis.Client) { _ = rdb.Close() }(rdb)
		locker = lock.NewRedis(rdb)
		logger.Info("redis locking enabled")
	} else {
		logger.Warn("REDIS_ADDRESS not set; distributed locking disabled")
	}

	r := router.New(cfg, router.Deps{
		Pool:   pool,
		DB:     pool,
		Locker: locker,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}
