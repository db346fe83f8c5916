// cmd/user-service manages user accounts and answers user lookups for the
// other services.
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
	slog.SetDefault(logger.Setup(cfg.LogLevel, "user-service"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("user service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var users repository.UserRepository
	switch cfg.Storage {
	case config.StorageMemory:
		users = memory.NewUserStore()
		slog.Info("using in-memory storage")
	default:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, database.ServiceUser); err != nil {
			return err
		}
		users = repository.NewUserRepository(pool)
		slog.Info("connected to PostgreSQL")
	}

	userSvc := service.NewUserService(users)

	r := handler.NewRouter()
	handler.NewUserHandler(userSvc).Routes(r)

	return server.Run(ctx, ":"+cfg.Port, r)
}
