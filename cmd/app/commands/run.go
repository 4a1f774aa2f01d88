package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/storesync/storesync/internal/app"
	"github.com/storesync/storesync/internal/config"
)

// RunEngine starts the reconciliation engine together with the operations API
// and the metrics server. It runs startup recovery first, then polls the
// marketplace every POLL_INTERVAL_SECONDS until SIGINT/SIGTERM. On shutdown the
// dispatcher lets in-progress storefront calls finish and the servers are
// stopped within DBConnMaxLifetime.
func RunEngine(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting storesync",
		slog.String("version", version),
		slog.String("storefront", cfg.StorefrontPlatform),
		slog.String("db_driver", cfg.DBDriver),
	)

	defer closeContainer(container, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A missing or malformed category mapping stops the process here.
	engine, err := container.Engine(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	var server interface {
		Start(context.Context) error
		Shutdown(context.Context) error
	}
	if cfg.ServerEnabled {
		httpServer, err := container.HTTPServer()
		if err != nil {
			return fmt.Errorf("failed to initialize HTTP server: %w", err)
		}
		server = httpServer
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := engine.Run(gctx); err != nil {
			return fmt.Errorf("engine error: %w", err)
		}
		logger.Info("engine stopped")
		cancel()
		return nil
	})

	if server != nil {
		g.Go(func() error {
			if err := server.Start(gctx); err != nil {
				return fmt.Errorf("api server error: %w", err)
			}
			return nil
		})
	}

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(gctx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	// Servers only return from Start once shut down, so stop them as soon as the
	// group context ends, whatever ended it.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		var shutdownErrors []error
		if server != nil {
			if err := server.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
			}
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}
