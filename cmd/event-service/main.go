// cmd/event-service is the Event Authority: it owns events and their
// confirmed participant counters.
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
	slog.SetDefault(logger.Setup(cfg.LogLevel, "event-service"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("event service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// ── 1. Storage ────────────────────────────────────────────────────────
	var events repository.EventRepository
	switch cfg.Storage {
	case config.StorageMemory:
		events = memory.NewEventStore()
		slog.Info("using in-memory storage")
	default:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, database.ServiceEvent); err != nil {
			return err
		}
		events = repository.NewEventRepository(pool)
		slog.Info("connected to PostgreSQL")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	users := remote.NewUserClient(cfg.UserServiceURL, cfg.RemoteTimeout)
	eventSvc := service.NewEventService(events, users)

	r := handler.NewRouter()
	handler.NewEventHandler(eventSvc).Routes(r)

	// ── 3. Serve ─────────────────────────────────────────────────────────
	return server.Run(ctx, ":"+cfg.Port, r)
}
