package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"bookingdesk/internal/booking"
	"bookingdesk/internal/notify"
	"bookingdesk/internal/observability"
	"bookingdesk/internal/users"
	"bookingdesk/pkg/config"
	"bookingdesk/pkg/db"
	"bookingdesk/pkg/postmark"
)

// notifier drains booking.created messages and sends the creation emails.
func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel).WithField("component", "notifier")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RabbitURL == "" {
		logger.Error("RABBIT_URL is required")
		os.Exit(1)
	}

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("db open failed")
		os.Exit(1)
	}
	defer pool.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logger.WithError(err).Error("rabbitmq dial failed")
		os.Exit(1)
	}
	defer conn.Close()

	consumer, err := notify.NewConsumer(conn, notify.Queue)
	if err != nil {
		logger.WithError(err).Error("rabbitmq consumer failed")
		os.Exit(1)
	}
	defer consumer.Close()

	dispatcher := &notify.Dispatcher{
		Mailer: postmark.Client{
			BaseURL:     cfg.Postmark.BaseURL,
			ServerToken: cfg.Postmark.ServerToken,
			From:        cfg.Postmark.From,
		},
		Recipients:   users.NewRepository(pool),
		DashboardURL: cfg.AppURL,
		Logger:       logger,
	}

	logger.WithField("queue", notify.Queue).Info("consuming")
	if err := consumer.Run(ctx, booking.NewRepository(pool), dispatcher, logger); err != nil {
		logger.WithError(err).Error("consumer stopped")
		os.Exit(1)
	}
	logger.Info("notifier exited")
}
