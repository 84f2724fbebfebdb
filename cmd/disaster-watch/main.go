package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/disaster-watch/internal/api"
	"github.com/mr1hm/disaster-watch/internal/config"
	"github.com/mr1hm/disaster-watch/internal/ingestion"
	"github.com/mr1hm/disaster-watch/internal/kvstore"
	"github.com/mr1hm/disaster-watch/internal/logging"
	"github.com/mr1hm/disaster-watch/internal/metrics"
	"github.com/mr1hm/disaster-watch/internal/publish"
	"github.com/mr1hm/disaster-watch/internal/refresh"
	"github.com/mr1hm/disaster-watch/internal/repository"
	"github.com/mr1hm/disaster-watch/internal/stats"
	"github.com/mr1hm/disaster-watch/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	retry := ingestion.RetryPolicy{
		MaxRetries:      cfg.Sources.MaxRetries,
		InitialInterval: ingestion.DefaultRetryPolicy.InitialInterval,
		MaxInterval:     ingestion.DefaultRetryPolicy.MaxInterval,
	}
	httpClient := &http.Client{Timeout: cfg.Sources.Timeout}

	var sources []ingestion.Source
	if cfg.Sources.USGSEnabled {
		sources = append(sources, ingestion.NewUSGSSource(cfg.Sources.USGSURL, httpClient, retry))
	}
	if cfg.Sources.EONETEnabled {
		sources = append(sources, ingestion.NewEONETSource(cfg.Sources.EONETURL, httpClient, retry, nil))
	}
	aggregator := ingestion.NewAggregator(m, cfg.Sources.Timeout, sources...)

	prefs, closePrefs, err := newPreferenceStore(ctx, cfg, db)
	if err != nil {
		logging.Fatalf("Failed to initialize preference store: %v", err)
	}
	defer closePrefs()

	var publisher publish.Publisher
	if cfg.Kafka.Enabled() {
		publisher = publish.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, m)
		slog.Info("kafka publishing enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// Create broadcaster for live streaming
	broadcaster := stream.NewBroadcaster(m)

	opts := refresh.Options{
		Workers:    cfg.Worker.Count,
		BufferSize: cfg.Worker.BufferSize,
	}
	if cfg.Refresh.Enabled {
		opts.Interval = cfg.Refresh.Interval
	}
	mgr := refresh.NewManager(opts, aggregator, db, broadcaster, publisher, m)
	if err := mgr.Start(ctx); err != nil {
		logging.Fatalf("Failed to start refresh: %v", err)
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(aggregator, stats.NewReporter(aggregator), db, broadcaster, prefs)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	mgr.Stop()
	broadcaster.Close() // Close all streams gracefully

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			slog.Error("kafka writer close error", "error", err)
		}
	}

	slog.Info("shutdown complete")
}

func newPreferenceStore(ctx context.Context, cfg *config.Config, db *repository.SQLiteDB) (kvstore.Store, func(), error) {
	switch cfg.KV.Backend {
	case "redis":
		client, err := kvstore.Connect(ctx, cfg.KV.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("preferences stored in redis", "namespace", cfg.KV.Namespace)
		return kvstore.NewRedisStore(client, cfg.KV.Namespace), func() { _ = client.Close() }, nil
	default:
		return db.KVStore(cfg.KV.Namespace), func() {}, nil
	}
}
