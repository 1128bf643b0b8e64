// Package osufeed provides a live telemetry client for the osu!
// companion processes that publish game memory over a WebSocket
// snapshot feed (tosu, gosumemory).
//
// The client can launch and supervise the companion itself or attach
// to one that is already running, keeps a small set of gameplay values
// current from the incoming snapshot documents, and exposes them both
// as polled reads and as change notifications.
//
// # Quick Start
//
// Attach to a companion that is already running on the default port:
//
//	m, _ := osufeed.New()
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Stop()
//
//	changes, unsubscribe := m.Live().Subscribe()
//	defer unsubscribe()
//	for change := range changes {
//	    fmt.Printf("%s: %v -> %v\n", change.Field, change.Old, change.New)
//	}
//
// # Configuration
//
// The Manager uses the functional options pattern for configuration:
//
//	m, err := osufeed.New(
//	    osufeed.WithExecutable(`C:\tools\tosu\tosu.exe`),
//	    osufeed.WithAutoStart(true),
//	    osufeed.WithAutoRestart(true),
//	    osufeed.WithUpdateInterval(250 * time.Millisecond),
//	    osufeed.WithMaxReconnects(5),
//	)
//
// # Tracked Values
//
// Snapshots carry far more than this client needs. It tracks a fixed
// set of paths and ignores everything else without decoding it:
//
//   - Game status (menu, playing, results, ...)
//   - Player name, score, combo and active mods of the ongoing play
//   - Playback time in milliseconds
//   - Whether a replay is being watched
//   - The identity of the loaded beatmap (folder and difficulty file)
//
// Values are deduplicated against the last committed state, so a
// change notification always means the value actually changed.
//
// # Architecture
//
// The package consists of several internal packages (under internal/):
//
//   - internal/scan: Allocation-avoiding JSON scanner with dotted-path
//     dispatch to registered handlers
//   - internal/feed: WebSocket transport with bounded linear-backoff
//     reconnection
//   - internal/supervisor: Companion process lifecycle and readiness
//     detection
//
// The internal packages are not part of the public API and may change
// without notice.
package osufeed
