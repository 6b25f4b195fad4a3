package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/carwatch/internal/config"
	"github.com/example/carwatch/internal/events"
	"github.com/example/carwatch/internal/feed"
	httpapi "github.com/example/carwatch/internal/http"
	"github.com/example/carwatch/internal/logging"
	"github.com/example/carwatch/internal/notify"
	"github.com/example/carwatch/internal/route"
	"github.com/example/carwatch/internal/storage"
	"github.com/example/carwatch/internal/subs"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var source feed.Source
	if cfg.FeedSource == "redis" {
		source = feed.NewRedisSource(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisKeyPrefix)
		logger.Info("using redis vehicle source", "addr", cfg.RedisAddr)
	} else {
		source = feed.NewHTTPSource(cfg.FeedBaseURL, cfg.FeedTimeout)
		logger.Info("using upstream http vehicle source", "base_url", cfg.FeedBaseURL)
	}

	push := notify.NewWebPushSender(cfg.VAPIDSubject, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	var sender notify.Sender = push
	if !push.Configured() {
		logger.Warn("VAPID keys not set, background push disabled")
		sender = &notify.LogSender{Logger: logger}
	}

	var deliveryLog storage.DeliveryLog
	if cfg.PGDSN != "" {
		if strings.EqualFold(os.Getenv("MIGRATE"), "true") {
			if err := applyMigrations(cfg.PGDSN); err != nil {
				logger.Error("migration failed", "error", err)
			} else {
				logger.Info("migrations applied")
			}
		}
		pg, err := storage.NewPostgresLog(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres delivery log unavailable", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		deliveryLog = pg
	} else {
		deliveryLog = storage.NewMemoryLog()
	}

	var matches *events.MatchPublisher
	if len(cfg.KafkaBrokers) > 0 {
		matches = events.NewMatchPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer matches.Close()
		logger.Info("publishing match events to kafka", "topic", cfg.KafkaTopic)
	}

	registry := subs.NewRegistry(source, sender, deliveryLog, matches, cfg.PollInterval, logger)
	walker := route.NewCachedEstimator(route.NewOSRMClient(cfg.OSRMEndpoint), 0)
	api := httpapi.NewServer(cfg, source, registry, push, walker, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("carwatch listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func applyMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_deliveries.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
