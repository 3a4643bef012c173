// ABOUTME: Entry point for keyward-authd, the credential authority
// ABOUTME: Verifies principals and issues signed access tokens over TLS

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/keyward/keyward/internal/authority"
	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/lifecycle"
	"github.com/keyward/keyward/internal/tlsutil"
)

// Version is set by goreleaser at build time.
var version = "dev"

const defaultAddr = ":5000"

// getConfigPath returns the path to the service config file.
func getConfigPath() string {
	if envPath := os.Getenv("KEYWARD_CONFIG"); envPath != "" {
		return envPath
	}
	return "authd.yaml"
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
	cyan.Println("keyward-authd")
	color.New(color.FgHiBlack).Printf("version: %s\n\n", version)
	green.Print("  ▶ ")
	fmt.Printf("Config: %s\n", configPath)
	green.Print("  ▶ ")
	fmt.Printf("Listen: %s\n", cfg.Server.Addr)
	green.Print("  ▶ ")
	fmt.Printf("Principals: %d\n\n", len(cfg.Principals))

	logger.Info("starting auth service",
		"addr", cfg.Server.Addr,
		"token_expiry_minutes", cfg.Auth.TokenExpiryMinutes,
	)

	if err := tlsutil.EnsureKeyPair(cfg.Server.CertFile, cfg.Server.KeyFile, "auth-service", logger); err != nil {
		return fmt.Errorf("preparing TLS key pair: %w", err)
	}

	drain := lifecycle.NewState()
	srv, err := authority.New(cfg, drain, logger)
	if err != nil {
		return fmt.Errorf("creating authority server: %w", err)
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
