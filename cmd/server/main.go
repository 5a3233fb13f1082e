package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Skufu/CKDRisk/internal/coeffs"
	"github.com/Skufu/CKDRisk/internal/logging"
	"github.com/Skufu/CKDRisk/internal/model"
	"github.com/Skufu/CKDRisk/internal/session"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	var db HealthChecker
	var src coeffs.Source = coeffs.FileSource{Path: cfg.CoeffsPath}
	if cfg.EnableDB {
		pool, err := connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()
		db = pool
		src = coeffs.PostgresSource{DB: pool, Name: cfg.CoeffsName}
	}

	store := coeffs.NewStore(src)
	table, err := store.Load(ctx)
	if err != nil {
		logger.Fatal("load coefficients", zap.Stringer("source", src), zap.Error(err))
	}
	if err := coeffs.RequireOutcomes(table, model.DeathInHospital, model.ProlongedLOS); err != nil {
		logger.Fatal("coefficient table incomplete", zap.Stringer("source", src), zap.Error(err))
	}
	logger.Info("coefficients loaded", zap.Stringer("source", src), zap.Strings("outcomes", table.Names()))

	sessions, err := session.NewStore(cfg.SessionCapacity)
	if err != nil {
		logger.Fatal("session store", zap.Error(err))
	}

	router, err := setupRouter(&server{
		coeffs:   store,
		sessions: sessions,
		db:       db,
		logger:   logger,
	})
	if err != nil {
		logger.Fatal("router setup failed", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("server listening", zap.String("port", cfg.Port))
	waitForShutdown(httpServer, logger)
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func waitForShutdown(httpServer *http.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
