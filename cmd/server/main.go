package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/blog-api/backend/internal/api"
	"github.com/ayush/blog-api/backend/internal/auth"
	"github.com/ayush/blog-api/backend/internal/config"
	"github.com/ayush/blog-api/backend/internal/images"
	"github.com/ayush/blog-api/backend/internal/logging"
	"github.com/ayush/blog-api/backend/internal/middleware"
	"github.com/ayush/blog-api/backend/internal/store"
)

// objectStore is what both image backends provide.
type objectStore interface {
	images.ObjectStore
	api.ImageSource
}

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	if cfg.SecretKey == "" {
		log.Fatal("SECRET_KEY must be set")
	}

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool, log)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}

	// ── Image storage ────────────────────────────────────────
	var objects objectStore
	if cfg.MinioEndpoint != "" {
		objects, err = store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			log.Fatalf("minio connect: %v", err)
		}
		log.WithField("bucket", cfg.MinioBucket).Info("storing images in minio")
	} else {
		dir := filepath.Join(cfg.UploadsDir, "images")
		objects, err = store.NewFileStore(dir)
		if err != nil {
			log.Fatalf("upload dir: %v", err)
		}
		log.WithField("dir", dir).Info("storing images on disk")
	}

	// ── Redis (optional rate limiting) ───────────────────────
	var limiter *middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warnf("redis unavailable, rate limiting disabled: %v", err)
		} else {
			defer rdb.Close()
			limiter = middleware.NewLimiter(rdb, cfg.RateLimitRPS, cfg.RateLimitBurst, log)
		}
	}

	// ── Handlers ─────────────────────────────────────────────
	accounts := auth.NewService(pgStore, auth.NewTokenIssuer(cfg.SecretKey), cfg.TokenTTL, log)
	ingestor := images.NewIngestor(objects, cfg.UploadURLPrefix, cfg.MaxUploadBytes, log)
	handler := api.NewHandler(accounts, pgStore, ingestor, objects, log)

	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins:     cfg.CORSOrigins,
		UploadURLPrefix: cfg.UploadURLPrefix,
		Limiter:         limiter,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	go func() {
		log.Infof("Blog API listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
