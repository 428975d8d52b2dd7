package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"bookingdesk/internal/httpapi"
	"bookingdesk/internal/notify"
	"bookingdesk/internal/observability"
	"bookingdesk/internal/ratelimit"
	"bookingdesk/pkg/config"
	"bookingdesk/pkg/db"
	"bookingdesk/pkg/postmark"
	"bookingdesk/pkg/storage"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTLPEndpoint, "bookingdesk-api")
	if err != nil {
		logger.WithError(err).Error("otel setup failed")
		os.Exit(1)
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	if cfg.Session.Secret == "" {
		logger.Error("SESSION_SECRET is required")
		os.Exit(1)
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("db open failed")
		os.Exit(1)
	}
	defer conn.Close()

	if cfg.MigrationsPath != "" {
		if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
			logger.WithError(err).Error("migrate failed")
			os.Exit(1)
		}
	}

	var store ratelimit.Store = ratelimit.NewMemoryStore(0)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Error("redis ping failed")
			os.Exit(1)
		}
		store = ratelimit.NewRedisStore(rdb)
		logger.WithField("addr", cfg.RedisAddr).Info("rate limits stored in redis")
	}

	deps := httpapi.Dependencies{
		Cfg:    cfg,
		DB:     conn,
		Logger: logger,
		Gate:   ratelimit.NewGate(store, ratelimit.WithLogger(logger)),
		Mailer: postmark.Client{
			BaseURL:     cfg.Postmark.BaseURL,
			ServerToken: cfg.Postmark.ServerToken,
			From:        cfg.Postmark.From,
		},
		Storage: storage.Client{
			BaseURL:    cfg.Storage.URL,
			ServiceKey: cfg.Storage.ServiceKey,
		},
	}

	if cfg.RabbitURL != "" {
		rconn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			logger.WithError(err).Error("rabbitmq dial failed")
			os.Exit(1)
		}
		defer rconn.Close()
		pub, err := notify.NewPublisher(rconn)
		if err != nil {
			logger.WithError(err).Error("rabbitmq publisher failed")
			os.Exit(1)
		}
		defer pub.Close()
		deps.Publisher = pub
		logger.Info("creation notifications queued to rabbitmq")
	}

	deps.Bookings = httpapi.NewBookingService(deps)
	router := httpapi.NewRouter(deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http serve failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	deps.Bookings.Wait()
	logger.Info("server exited")
}
