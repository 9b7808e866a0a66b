//	@title			Orders API
//	@version		1.0
//	@description	Order records with one attached file each, stored in S3-compatible object storage.
//
//	@host		localhost:8080
//	@BasePath	/api

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/orderdesk/service/internal/config"
	"github.com/orderdesk/service/internal/db"
	"github.com/orderdesk/service/internal/health"
	"github.com/orderdesk/service/internal/metrics"
	appMiddleware "github.com/orderdesk/service/internal/middleware"
	"github.com/orderdesk/service/internal/order"
	"github.com/orderdesk/service/internal/storage"

	_ "github.com/orderdesk/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := health.NewHandler(2 * time.Second)

	var repo order.Repository
	if cfg.UsesDatabase() {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("database connection failed")
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.WithError(err).Fatal("database migration failed")
		}
		repo = order.NewPostgresRepository(pool)
		checks.Register("postgres", pool.Ping)
	} else {
		log.Warn("DATABASE_URL not set, orders are kept in memory and lost on restart")
		repo = order.NewMemoryRepository()
	}

	store, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
		Endpoint:   cfg.StorageEndpoint,
		Region:     cfg.StorageRegion,
		AccessKey:  cfg.StorageAccessKey,
		SecretKey:  cfg.StorageSecretKey,
		Bucket:     cfg.StorageBucket,
		PublicBase: cfg.StoragePublicBase,
		UseSSL:     cfg.StorageUseSSL,
		SSE:        cfg.StorageSSE,
	}, log.WithField("component", "storage"))
	if err != nil {
		log.WithError(err).Fatal("object storage init failed")
	}
	checks.Register("object_store", store.Ping)

	// Wire dependencies: repository → service → handler
	orderSvc := order.NewService(repo, store, order.Config{
		DownloadLinkTTL: cfg.DownloadLinkTTL,
		MaxFileBytes:    cfg.MaxUploadBytes,
	}, log.WithField("component", "order"), metrics.NewOrderMetrics())
	orderHandler := order.NewHandler(orderSvc, cfg.MaxUploadBytes, log.WithField("component", "order_http"))

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log.WithField("component", "http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/livez", health.LivenessHandler)
	r.Method(http.MethodGet, "/healthz", checks)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Swagger UI at http://localhost:8080/swagger/
	if !cfg.IsProduction() {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api", func(r chi.Router) {
		r.Mount("/orders", orderHandler.Routes())
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{"port": cfg.Port, "env": cfg.AppEnv}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
		return
	}

	log.Info("server stopped")
}

func setupLogger(cfg *config.Config) {
	log.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" || cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
