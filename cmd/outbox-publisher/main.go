// cmd/outbox-publisher polls the request outbox and relays its messages to a
// Redis stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/config"
	"github.com/Shivanand-hulikatti/event-participation/internal/database"
	"github.com/Shivanand-hulikatti/event-participation/internal/logger"
	"github.com/Shivanand-hulikatti/event-participation/internal/messaging"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.Setup(cfg.LogLevel, "outbox-publisher"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("outbox publisher failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Storage != config.StoragePostgres {
		return errors.New("outbox publisher requires STORAGE=postgres")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool, database.ServiceRequest); err != nil {
		return err
	}

	redisClient, err := messaging.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	outboxSvc := service.NewOutboxService(
		repository.NewOutboxRepository(pool),
		messaging.NewRedisStreamPublisher(redisClient, cfg.OutboxStream),
	)

	slog.Info("starting outbox publisher",
		slog.Duration("poll_interval", cfg.PublisherPollInterval),
		slog.Int("batch_size", cfg.PublisherBatchSize),
		slog.String("stream", cfg.OutboxStream),
	)
	runPublisherLoop(ctx, outboxSvc, cfg.PublisherPollInterval, cfg.PublisherBatchSize)
	return nil
}

func runPublisherLoop(ctx context.Context, outboxSvc *service.OutboxService, pollInterval time.Duration, batchSize int) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("publisher stopped")
			return
		case <-ticker.C:
			n, err := outboxSvc.ProcessUnpublishedEvents(ctx, batchSize)
			if err != nil {
				slog.Error("error processing outbox messages", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				slog.Info("published outbox messages", slog.Int("count", n))
			}
		}
	}
}
