// cmd/request-service is the Request Authority: it admits, approves and
// cancels participation requests, reserving slots through the event service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shivanand-hulikatti/event-participation/internal/config"
	"github.com/Shivanand-hulikatti/event-participation/internal/database"
	"github.com/Shivanand-hulikatti/event-participation/internal/handler"
	"github.com/Shivanand-hulikatti/event-participation/internal/logger"
	"github.com/Shivanand-hulikatti/event-participation/internal/remote"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-participation/internal/server"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.Setup(cfg.LogLevel, "request-service"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("request service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// ── 1. Storage ────────────────────────────────────────────────────────
	var (
		requests repository.RequestRepository
		outbox   repository.OutboxRepository
	)
	switch cfg.Storage {
	case config.StorageMemory:
		// In memory the outbox is never relayed; messages stay for inspection.
		ob := memory.NewOutboxStore()
		requests, outbox = memory.NewRequestStore(ob), ob
		slog.Info("using in-memory storage")
	default:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, database.ServiceRequest); err != nil {
			return err
		}
		requests = repository.NewRequestRepository(pool)
		outbox = repository.NewOutboxRepository(pool)
		slog.Info("connected to PostgreSQL")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	events := remote.NewEventClient(cfg.EventServiceURL, cfg.RemoteTimeout)
	users := remote.NewUserClient(cfg.UserServiceURL, cfg.RemoteTimeout)
	requestSvc := service.NewRequestService(requests, outbox, events, users)

	r := handler.NewRouter()
	handler.NewRequestHandler(requestSvc).Routes(r)

	// ── 3. Serve ─────────────────────────────────────────────────────────
	return server.Run(ctx, ":"+cfg.Port, r)
}
