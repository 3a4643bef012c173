// ABOUTME: Entry point for keyward-datad, the protected resource service
// ABOUTME: Serves per-user data gated by tokens or delegated credential checks

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/lifecycle"
	"github.com/keyward/keyward/internal/resource"
	"github.com/keyward/keyward/internal/tlsutil"
)

// Version is set by goreleaser at build time.
var version = "dev"

const defaultAddr = ":5001"

// getConfigPath returns the path to the service config file.
func getConfigPath() string {
	if envPath := os.Getenv("KEYWARD_CONFIG"); envPath != "" {
		return envPath
	}
	return "datad.yaml"
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}

	logger := setupLogger(cfg.Logging)

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	cyan.Println("keyward-datad")
	color.New(color.FgHiBlack).Printf("version: %s\n\n", version)
	green.Print("  ▶ ")
	fmt.Printf("Config: %s\n", configPath)
	green.Print("  ▶ ")
	fmt.Printf("Listen: %s\n", cfg.Server.Addr)
	green.Print("  ▶ ")
	fmt.Printf("Authority: %s\n\n", cfg.UpstreamBaseURL())

	logger.Info("starting data service",
		"addr", cfg.Server.Addr,
		"authority", cfg.UpstreamBaseURL(),
	)

	if err := tlsutil.EnsureKeyPair(cfg.Server.CertFile, cfg.Server.KeyFile, "data-service", logger); err != nil {
		return fmt.Errorf("preparing TLS key pair: %w", err)
	}

	drain := lifecycle.NewState()
	srv, err := resource.New(cfg, drain, logger)
	if err != nil {
		return fmt.Errorf("creating resource server: %w", err)
	}
	return srv.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
