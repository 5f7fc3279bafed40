// Command server runs the finance entry web application.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dailyfinance/internal/config"
	"github.com/JonMunkholm/dailyfinance/internal/core"
	"github.com/JonMunkholm/dailyfinance/internal/entry"
	"github.com/JonMunkholm/dailyfinance/internal/logging"
	"github.com/JonMunkholm/dailyfinance/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Values in .env win over the inherited environment.
	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := entry.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer closeStore()

	service := core.NewService(store, cfg)
	server := web.NewServer(service, cfg)

	go service.StartAuditPruner(ctx, cfg.Audit)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return errors.Join(drainImports(shutdownCtx, service), server.Shutdown(shutdownCtx))
}

// drainImports waits for in-flight imports so their entries are not cut off
// mid-transaction.
func drainImports(ctx context.Context, service *core.Service) error {
	active := service.LimiterStatus().Active
	if active == 0 {
		return nil
	}
	slog.Info("waiting for imports", "active", active)
	if err := service.WaitForImports(ctx); err != nil {
		return fmt.Errorf("imports still running at shutdown: %w", err)
	}
	return nil
}
