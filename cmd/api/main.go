package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AdrianLinares/petcare-app-sub000/internal/cache"
	"github.com/AdrianLinares/petcare-app-sub000/internal/config"
	"github.com/AdrianLinares/petcare-app-sub000/internal/database"
	"github.com/AdrianLinares/petcare-app-sub000/internal/handlers"
	"github.com/AdrianLinares/petcare-app-sub000/internal/jobs"
	"github.com/AdrianLinares/petcare-app-sub000/internal/log"
	"github.com/AdrianLinares/petcare-app-sub000/internal/metrics"
	"github.com/AdrianLinares/petcare-app-sub000/internal/notify"
	"github.com/AdrianLinares/petcare-app-sub000/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	publisher, closer, err := newPublisher(ctx, cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Str("transport", cfg.Mail.Transport).Msg("failed to init mail transport")
	}

	rec := metrics.NewRecorder()

	handlerSet, recovery, err := handlers.NewHandlerSet(logger, dbPool, redisClient, notify.NewMailer(publisher), rec, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build handlers")
	}
	httpServer := server.NewHTTPServer(cfg, logger, rec, handlerSet)

	scheduler := jobs.NewScheduler(recovery, cfg.Recovery.SweepSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient, closer)
}

// newPublisher picks the mail transport. The redis stream shares the cache
// client; the amqp publisher owns a broker connection that must be closed.
func newPublisher(ctx context.Context, cfg *config.AppConfig, redisClient *redis.Client) (notify.Publisher, io.Closer, error) {
	if cfg.Mail.Transport == config.MailTransportAMQP {
		pub, err := notify.DialQueuePublisher(cfg.Mail.AMQPURL, cfg.Mail.Queue)
		if err != nil {
			return nil, nil, err
		}
		return pub, pub, nil
	}

	if err := cache.EnsureStreamGroup(ctx, redisClient, cfg.Mail.Stream, cfg.Mail.Group); err != nil {
		return nil, nil, err
	}
	return notify.NewStreamPublisher(redisClient, cfg.Mail.Stream), nil, nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client, mailCloser io.Closer) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("sweep still running at shutdown")
	}

	if mailCloser != nil {
		if err := mailCloser.Close(); err != nil {
			logger.Error().Err(err).Msg("mail transport close error")
		}
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
