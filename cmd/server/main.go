package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/audience-sizer/internal/api"
	"github.com/ignite/audience-sizer/internal/app"
	"github.com/ignite/audience-sizer/internal/config"
	"github.com/ignite/audience-sizer/internal/pkg/logger"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	return ln.Close()
}

func main() {
	logger.SetRedactSecrets(true)
	logger.Info("audience-sizer server starting", "binary", "cmd/server")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("failed to initialize warehouse", "error", err)
		os.Exit(1)
	}
	if err := a.WithLLM(ctx, cfg.LLM); err != nil {
		logger.Error("failed to initialize LLM client", "provider", cfg.LLM.Provider, "error", err)
		os.Exit(1)
	}
	logger.Info("services initialized",
		"warehouse", cfg.Warehouse.Driver,
		"default_schema", cfg.Warehouse.DefaultSchema,
		"canonical_schema", cfg.Segmentation.CanonicalSchema,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
	)

	server := api.NewServer(cfg.Server, api.NewHandlers(a.Catalog, a.Extractor, a.Engine))

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		logger.Error("cannot start server", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
	_ = logger.Sync()
}
