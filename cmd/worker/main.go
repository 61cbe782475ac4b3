package main

import (
	"auctions/infra/cache"
	"auctions/infra/rabbitmq"
	"auctions/internal/consumers"
	"auctions/pkg/config"
	"auctions/pkg/events"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.L().Info("Auctions Worker Service starting...")

	appConfig := config.Read()
	zap.L().Info("Worker config loaded",
		zap.String("serviceName", appConfig.ServiceName),
		zap.String("redisAddr", appConfig.RedisAddr),
		zap.Duration("summaryTTL", appConfig.SummaryTTL),
	)

	if appConfig.RabbitMQURL == "" {
		zap.L().Fatal("RABBITMQ_URL is required for worker service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := cache.NewRedisClient(ctx, appConfig.RedisAddr)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	summaryHandler := consumers.NewSummaryEventHandler(
		cache.NewSummaryCache(redisClient, appConfig.SummaryTTL),
	)

	// Queue name: {service}.{projection}.{version}
	summaryConsumer, err := rabbitmq.NewConsumer(appConfig.RabbitMQURL, rabbitmq.ConsumerConfig{
		Exchange:       events.ListingExchange,
		QueueName:      appConfig.ServiceName + ".summary.v1",
		RoutingKeys:    consumers.SummaryRoutingKeys,
		ServiceName:    appConfig.ServiceName,
		PrefetchCount:  10,
		WorkerPoolSize: 20,
	})
	if err != nil {
		zap.L().Fatal("Failed to create summary consumer", zap.Error(err))
	}
	defer summaryConsumer.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		zap.L().Info("Starting summary event consumer...")
		if err := summaryConsumer.Consume(ctx, summaryHandler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			zap.L().Error("Summary consumer error", zap.Error(err))
		}
	}()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(appConfig.PoolStatsSchedule, func() {
		logPoolStats(summaryConsumer.Stats())
	}); err != nil {
		zap.L().Fatal("Invalid POOL_STATS_SCHEDULE", zap.String("schedule", appConfig.PoolStatsSchedule), zap.Error(err))
	}
	scheduler.Start()

	zap.L().Info("Worker service started successfully. Waiting for events...",
		zap.String("exchange", events.ListingExchange),
		zap.Strings("routingKeys", consumers.SummaryRoutingKeys),
	)

	<-sigChan
	zap.L().Info("Shutdown signal received, stopping worker service...")
	<-scheduler.Stop().Done()
	cancel()

	zap.L().Info("Worker service stopped gracefully")
}

func logPoolStats(stats rabbitmq.PoolStats) {
	zap.L().Info("Consumer pool stats",
		zap.Int("workers", stats.Workers),
		zap.Int64("in_flight", stats.InFlight),
		zap.Int64("processed", stats.Processed),
		zap.Int64("failed", stats.Failed),
	)
}
