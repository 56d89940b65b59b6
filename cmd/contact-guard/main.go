package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/core"
	"github.com/mikey/contact-guard/internal/di"
	"github.com/mikey/contact-guard/internal/ports"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", dig.RootCause(err))
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	server ports.Server,
	store core.RateLimitStore,
	reviewer core.SubmissionReviewer,
) error {
	defer logger.Sync()

	serverCfg, err := cfg.GetServer()
	if err != nil {
		return err
	}

	// Start the server
	if err := server.Start(); err != nil {
		logger.Error("Failed to start server", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Shutting down...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	// Stop the server
	if err := server.Stop(ctx); err != nil {
		logger.Error("Failed to stop server", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := reviewer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	if err := store.Close(); err != nil {
		logger.Error("Failed to close rate limit store", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
