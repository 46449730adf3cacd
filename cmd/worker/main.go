package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/AdrianLinares/petcare-app-sub000/internal/cache"
	"github.com/AdrianLinares/petcare-app-sub000/internal/config"
	"github.com/AdrianLinares/petcare-app-sub000/internal/log"
	"github.com/AdrianLinares/petcare-app-sub000/internal/queue"
	"github.com/AdrianLinares/petcare-app-sub000/internal/tasks"
)

type consumer interface {
	Start(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor := tasks.NewMailProcessor(tasks.NewLogDeliverer(logger), logger)

	c, cleanup := newConsumer(ctx, cfg, logger, processor)
	defer cleanup()

	logger.Info().Str("transport", cfg.Mail.Transport).Msg("mail worker started")
	if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("mail worker stopped")
}

func newConsumer(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger, handler queue.MessageHandler) (consumer, func()) {
	if cfg.Mail.Transport == config.MailTransportAMQP {
		return queue.NewAMQPConsumer(cfg.Mail.AMQPURL, cfg.Mail.Queue, logger, handler), func() {}
	}

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	if err := cache.EnsureStreamGroup(ctx, client, cfg.Mail.Stream, cfg.Mail.Group); err != nil {
		logger.Fatal().Err(err).Msg("create consumer group failed")
	}

	sc := queue.NewStreamConsumer(client, cfg.Mail.Stream, cfg.Mail.Group, cfg.Mail.Consumer, cfg.Mail.ClaimInterval, logger, handler)
	return sc, func() { _ = client.Close() }
}
