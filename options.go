package osufeed

import (
	"errors"
	"log/slog"
	"time"
)

// managerConfig holds mutable state during Manager construction.
type managerConfig struct {
	executable        string
	args              []string
	autoStart         bool
	autoRestart       bool
	host              string
	port              int
	feedPath          string
	updateInterval    time.Duration
	reconnectInterval time.Duration
	maxReconnects     int
	logger            *slog.Logger
	stateCallbacks    []StateCallback
}

// Option is a function that configures a [Manager] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithExecutable], [WithAutoStart], [WithAutoRestart],
// [WithHost], [WithPort], [WithFeedPath], [WithUpdateInterval],
// [WithReconnectInterval], [WithMaxReconnects], [WithLogger],
// [WithStateCallback].
type Option func(*managerConfig) error

// WithExecutable sets the companion process the Manager may supervise,
// with optional command-line arguments.
//
// Setting an executable does not launch it by itself; combine with
// [WithAutoStart] to have Start launch and watch the process.
//
// Example:
//
//	m, err := osufeed.New(
//	    osufeed.WithExecutable(`C:\tools\tosu\tosu.exe`),
//	    osufeed.WithAutoStart(true),
//	)
//
// Returns an error if the path is empty.
func WithExecutable(path string, args ...string) Option {
	return func(cfg *managerConfig) error {
		if path == "" {
			return errors.New("executable path cannot be empty")
		}
		cfg.executable = path
		cfg.args = args
		return nil
	}
}

// WithAutoStart controls whether Start launches the configured companion
// executable and waits for its readiness signal before connecting.
//
// When disabled, Start connects directly to the configured host and port
// and assumes the companion is already running. Defaults to false.
//
// Enabling auto-start without configuring an executable causes [New] to
// return an error.
func WithAutoStart(enabled bool) Option {
	return func(cfg *managerConfig) error {
		cfg.autoStart = enabled
		return nil
	}
}

// WithAutoRestart controls whether the companion process is relaunched
// after it exits unexpectedly, or after the feed exhausts its reconnect
// budget while the process is supervised.
//
// Has no effect unless the Manager supervises a process. Defaults to false.
func WithAutoRestart(enabled bool) Option {
	return func(cfg *managerConfig) error {
		cfg.autoRestart = enabled
		return nil
	}
}

// WithHost sets the host the snapshot feed is reached on.
//
// The companion normally listens on loopback only. Defaults to 127.0.0.1
// if not specified.
//
// Returns an error if the host is empty.
func WithHost(host string) Option {
	return func(cfg *managerConfig) error {
		if host == "" {
			return errors.New("host cannot be empty")
		}
		cfg.host = host
		return nil
	}
}

// WithPort sets the feed port.
//
// The port is used only when the Manager does not supervise the
// companion; a supervised companion announces its actual port through
// its readiness message, and that announcement takes precedence.
// Defaults to 24050 if not specified.
//
// Example:
//
//	m, err := osufeed.New(
//	    osufeed.WithPort(24051),
//	)
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *managerConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithFeedPath sets the WebSocket path of the snapshot feed.
//
// Defaults to /websocket/v2 if not specified.
//
// Returns an error if the path does not start with '/'.
func WithFeedPath(path string) Option {
	return func(cfg *managerConfig) error {
		if path == "" || path[0] != '/' {
			return errors.New("feed path must start with '/'")
		}
		cfg.feedPath = path
		return nil
	}
}

// WithUpdateInterval sets the cadence of the background heartbeat that
// watches for a feed gone quiet while connected.
//
// Defaults to 500 milliseconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithUpdateInterval(d time.Duration) Option {
	return func(cfg *managerConfig) error {
		if d <= 0 {
			return errors.New("update interval must be positive")
		}
		cfg.updateInterval = d
		return nil
	}
}

// WithReconnectInterval sets the base delay between reconnect attempts
// after a lost connection.
//
// The delay grows linearly: attempt n waits n times this value.
// Defaults to 1 second if not specified.
//
// Returns an error if the duration is zero or negative.
func WithReconnectInterval(d time.Duration) Option {
	return func(cfg *managerConfig) error {
		if d <= 0 {
			return errors.New("reconnect interval must be positive")
		}
		cfg.reconnectInterval = d
		return nil
	}
}

// WithMaxReconnects bounds how many reconnect attempts may follow a
// single lost connection before the feed gives up.
//
// Zero disables reconnecting entirely; the first drop is then final.
// Defaults to 10 if not specified.
//
// Returns an error if the value is negative.
func WithMaxReconnects(n int) Option {
	return func(cfg *managerConfig) error {
		if n < 0 {
			return errors.New("max reconnects cannot be negative")
		}
		cfg.maxReconnects = n
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Manager instance.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	m, err := osufeed.New(
//	    osufeed.WithLogger(logger),
//	)
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *managerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStateCallback registers a function to be called on every
// connection-state transition.
//
// The callback receives the state being left and the state being
// entered. Multiple callbacks may be registered by calling
// WithStateCallback multiple times; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking and must not call back into
// the Manager; they run synchronously while internal state is locked.
// Long-running operations should dispatch work to a separate goroutine.
//
// Panics within callbacks are recovered and logged; they do not crash
// the session.
//
// Example:
//
//	m, err := osufeed.New(
//	    osufeed.WithStateCallback(func(from, to osufeed.ConnectionState) {
//	        log.Printf("connection: %s -> %s", from, to)
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithStateCallback(cb StateCallback) Option {
	return func(cfg *managerConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.stateCallbacks = append(cfg.stateCallbacks, cb)
		return nil
	}
}
