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
)

func main() {
	// start mock companion (see mock_server.go)
	go StartMockCompanion(":24050")
	time.Sleep(100 * time.Millisecond)

	m, err := osufeed.New(
		osufeed.WithPort(24050),
		osufeed.WithUpdateInterval(250*time.Millisecond),
	)
	if err != nil {
		slog.Error("failed to create manager", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   osufeed Demo                                        ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   A mock companion is playing on :24050               ║")
	fmt.Println("  ║   Tracked values print below as they change           ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		slog.Error("osufeed error", "error", err)
		os.Exit(1)
	}
	defer m.Stop()

	changes, unsubscribe := m.Live().Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nshutting down")
			return
		case c := <-changes:
			fmt.Printf("  %-12s %v → %v\n", c.Field, c.Old, c.New)
		}
	}
}
