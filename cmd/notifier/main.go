// Command notifier drains the notification queue and delivers each message
// by email.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/config"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/logging"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/mailer"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/queue"
)

func main() {
	cfg := config.LoadNotifierConfig()
	logger := logging.New("homehuddle-notifier", cfg.Env, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sender queue.Sender
	if cfg.SESFromEmail != "" {
		s, err := mailer.NewSES(ctx, cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, logger)
		if err != nil {
			log.Fatalf("ses: %v", err)
		}
		sender = s
	} else {
		sender = mailer.NewLog(logger)
	}

	logger.Info("notifier starting", "queue", cfg.NotifyQueue)
	err := queue.NewConsumer(cfg.RabbitMQURL, cfg.NotifyQueue, sender, logger).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("consumer: %v", err)
	}
	logger.Info("notifier stopped")
}
