package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/compliai/compliai/internal/application"
	appassess "github.com/compliai/compliai/internal/application/assessments"
	appident "github.com/compliai/compliai/internal/application/identity"
	"github.com/compliai/compliai/internal/config"
	"github.com/compliai/compliai/internal/domain/credentials"
	"github.com/compliai/compliai/internal/domain/identity"
	"github.com/compliai/compliai/internal/infra/ai/openrouter"
	"github.com/compliai/compliai/internal/infra/db/memory"
	mysqldb "github.com/compliai/compliai/internal/infra/db/mysql"
	postgresdb "github.com/compliai/compliai/internal/infra/db/postgres"
	"github.com/compliai/compliai/internal/infra/httpserver"
	minioStore "github.com/compliai/compliai/internal/infra/storage"
	"github.com/compliai/compliai/internal/logger"
	mw "github.com/compliai/compliai/internal/middleware"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx := context.Background()

	var (
		users    identity.Repository
		creds    credentials.Repository
		checkers = map[string]mw.HealthChecker{}
	)
	switch cfg.Database.Driver {
	case "memory":
		users = memory.NewUserRepository()
		creds = memory.NewCredentialRepository()
	case "mysql":
		db, err := mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			slog.Error("mysql connect error", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		users = mysqldb.NewUserRepository(db)
		creds = mysqldb.NewCredentialRepository(db)
		checkers["database"] = &mw.DatabaseHealthChecker{DB: db}
	case "postgres":
		db, err := postgresdb.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			slog.Error("postgres connect error", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		users = postgresdb.NewUserRepository(db)
		creds = postgresdb.NewCredentialRepository(db)
		checkers["database"] = &mw.DatabaseHealthChecker{DB: db}
	default:
		slog.Error("unknown database driver", "driver", cfg.Database.Driver)
		os.Exit(1)
	}

	// MinIO is optional; without it export archiving is disabled
	var artifacts *minioStore.Store
	if cfg.Minio.Endpoint != "" {
		artifacts, err = minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			slog.Error("minio init error", "error", err)
			os.Exit(1)
		}
	}

	clock := application.SystemClock{}

	scorer := openrouter.New(openrouter.Config{
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AITimeout(),
	})

	ident := &appident.Service{
		Users:    users,
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.TokenTTL(),
		ResetTTL: cfg.ResetTTL(),
		Clock:    clock,
	}

	var assess *appassess.Service
	if artifacts != nil {
		assess = appassess.NewService(scorer, creds, artifacts, clock, cfg.Debounce())
	} else {
		assess = appassess.NewService(scorer, creds, nil, clock, cfg.Debounce())
	}

	handler := httpserver.NewRouter(ident, creds, assess, clock, httpserver.Config{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit:      mw.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Health:         checkers,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr, "db", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
