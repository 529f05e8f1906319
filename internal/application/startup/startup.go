// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/container"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until a
// shutdown signal arrives.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("Initializing leadtrack...")

	// Step 1: Logger
	logger, err := container.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Channeled logging initialized", "level", config.LogLevel)

	// Step 2: Container with storage backends
	appContainer, err := container.NewContainer(ctx, logger)
	if err != nil {
		logger.LogStartupPhase("container", time.Since(start), false)
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer func() {
		if err := appContainer.Close(); err != nil {
			logger.Shutdown().Error("Error closing backends", "error", err.Error())
		}
	}()

	// Step 3: Background workers
	startWorkerTime := time.Now()
	go appContainer.Registry.StartCleanup(ctx, config.TrackerCleanup)
	go appContainer.AnalyticsService.Run(ctx)
	go appContainer.LeadFeed.Run(ctx)
	logger.Startup().Info("Background workers started", "duration", time.Since(startWorkerTime))

	// Step 4: HTTP server
	startServerTime := time.Now()
	httpServer := server.New(config.Port, appContainer)
	logger.Startup().Info("HTTP server initialized", "port", config.Port, "duration", time.Since(startServerTime))

	// Step 5: Graceful shutdown
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			serverErr <- err
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"stateBackend", config.StateBackend,
		"leadStore", config.LeadStoreBackend,
		"port", config.Port)

	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		logger.System().Error("HTTP server failed", "error", err.Error())
		return err
	}

	shutdownStart := time.Now()
	shutdown(logger, httpServer, cancelBackgroundTasks, 30*time.Second)

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

type stopper interface {
	Stop(ctx context.Context) error
}

// shutdown stops the HTTP server, then cancels the background workers.
func shutdown(logger *logging.ChanneledLogger, srv stopper, cancelBackgroundTasks context.CancelFunc, timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Stopping background workers...")
	cancelBackgroundTasks()
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
