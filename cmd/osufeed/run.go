package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OniNezuko/osufeed"
	"github.com/OniNezuko/osufeed/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// runCmd attaches to the companion's snapshot feed.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the telemetry session",
	Long: `Attach to the companion's snapshot feed and stream live values.

The session will:
  - Load configuration from the specified YAML file
  - Launch the companion process when auto_start is enabled
  - Connect to the WebSocket feed and log every tracked value change

The session runs until interrupted (Ctrl+C), SIGTERM, or the connection
is lost for good.

Example:
  osufeed run -c osufeed.yaml
  osufeed run --config /etc/osufeed/config.yaml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"auto_start", cfg.AutoStart,
		"auto_restart", cfg.AutoRestart,
	)

	// a session that ends on its own (reconnects exhausted, companion
	// gone) should end the process too
	sessionOver := make(chan struct{}, 1)
	opts := append(config.Options(cfg),
		osufeed.WithLogger(logger),
		osufeed.WithStateCallback(func(from, to osufeed.ConnectionState) {
			if to == osufeed.StateDisconnected {
				select {
				case sessionOver <- struct{}{}:
				default:
				}
			}
		}),
	)

	m, err := osufeed.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	changes, unsubscribe := m.Live().Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return stopWithTimeout(m, logger)

		case <-sessionOver:
			logger.Info("session over")
			return stopWithTimeout(m, logger)

		case change := <-changes:
			logger.Info("live value changed",
				"field", change.Field,
				"old", fmt.Sprintf("%v", change.Old),
				"new", fmt.Sprintf("%v", change.New),
			)
		}
	}
}

// stopWithTimeout stops the manager, bounded so an unresponsive
// companion process cannot hold the exit hostage.
func stopWithTimeout(m *osufeed.Manager, logger *slog.Logger) error {
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out",
			"timeout", shutdownTimeout.String(),
			"action", "forcing exit",
		)
	}
	return nil
}
