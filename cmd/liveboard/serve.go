package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/liveboard-dev/liveboard/pkg/relay"
)

// serveEnv is the environment-backed relay configuration. Flags override
// whatever the environment provides.
type serveEnv struct {
	Addr        string        `env:"LIVEBOARD_ADDR" envDefault:":8080"`
	DefaultRoom string        `env:"LIVEBOARD_DEFAULT_ROOM" envDefault:"default"`
	WriteTime   time.Duration `env:"LIVEBOARD_WRITE_TIMEOUT" envDefault:"10s"`
	LogLevel    string        `env:"LIVEBOARD_LOG_LEVEL" envDefault:"info"`
}

func serveCmd() *cobra.Command {
	var (
		addr        string
		defaultRoom string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collaboration relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.ParseAs[serveEnv]()
			if err != nil {
				return fmt.Errorf("parse environment: %w", err)
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if defaultRoom != "" {
				cfg.DefaultRoom = defaultRoom
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			setupLogging(cfg.LogLevel)

			server := relay.New(&relay.Config{
				Addr:         cfg.Addr,
				DefaultRoom:  cfg.DefaultRoom,
				WriteTimeout: cfg.WriteTime,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				slog.Info("shutting down", "signal", sig.String())
				return server.Shutdown(context.Background())
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LIVEBOARD_ADDR)")
	cmd.Flags().StringVar(&defaultRoom, "default-room", "", "room used when the URL carries none")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	return cmd
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
