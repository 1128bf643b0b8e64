package osufeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/OniNezuko/osufeed/internal/feed"
	"github.com/OniNezuko/osufeed/internal/scan"
	"github.com/OniNezuko/osufeed/internal/supervisor"
)

const (
	defaultHost              = "127.0.0.1"
	defaultPort              = 24050
	defaultFeedPath          = "/websocket/v2"
	defaultUpdateInterval    = 500 * time.Millisecond
	defaultReconnectInterval = 1 * time.Second
	defaultMaxReconnects     = 10

	// processStabilizeDelay is how long a freshly launched companion
	// gets between announcing readiness and the first dial. The
	// announcement races the actual listener setup.
	processStabilizeDelay = 500 * time.Millisecond

	// staleAfterIntervals is how many quiet update intervals make a
	// connected feed count as stalled.
	staleAfterIntervals = 3
)

// Manager is the main orchestrator for the live game telemetry session.
//
// Manager optionally launches and supervises the companion process that
// reads game memory, connects to its WebSocket snapshot feed, and keeps
// a [LiveState] current from the incoming documents. It is created with
// [New] using functional options and started with [Manager.Start].
//
// The typical lifecycle is:
//
//	m, err := osufeed.New(
//	    osufeed.WithExecutable(`C:\tools\tosu\tosu.exe`),
//	    osufeed.WithAutoStart(true),
//	    osufeed.WithAutoRestart(true),
//	)
//	if err != nil {
//	    slog.Error("failed to create manager", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	if err := m.Start(ctx); err != nil {
//	    slog.Error("failed to start", "error", err)
//	    os.Exit(1)
//	}
//	defer m.Stop()
//
//	changes, unsubscribe := m.Live().Subscribe()
//	defer unsubscribe()
//	for change := range changes {
//	    fmt.Printf("%s: %v -> %v\n", change.Field, change.Old, change.New)
//	}
//
// Frame processing is confined to the transport's read goroutine, so
// the pending and shadow records below need no locking of their own.
type Manager struct {
	host              string
	port              int
	feedPath          string
	updateInterval    time.Duration
	reconnectInterval time.Duration
	maxReconnects     int
	autoRestart       bool
	logger            *slog.Logger

	live     *LiveState
	registry *scan.Registry
	engine   *scan.Engine
	pending  framePending
	shadow   shadowFields

	sup *supervisor.Supervisor

	// mu serializes lifecycle transitions: Start, Stop and companion
	// restarts. Transport and supervisor callbacks never take it
	// directly; paths that need it go through their own goroutine.
	mu      sync.Mutex
	running bool
	feed    *feed.Client
	wg      sync.WaitGroup

	// cancelMu guards the session context pair. Lock order where both
	// are held is mu before cancelMu, never the reverse.
	cancelMu sync.Mutex
	runCtx   context.Context
	cancel   context.CancelFunc

	stateMu        sync.Mutex
	state          ConnectionState
	stateCallbacks []StateCallback

	stopping  atomic.Bool
	lastFrame atomic.Int64
}

// New creates a new [Manager] instance with the given options.
//
// All options have usable defaults:
//   - Host: 127.0.0.1, port: 24050, feed path: /websocket/v2
//   - Update interval: 500ms
//   - Reconnect interval: 1s, max reconnects: 10
//   - Auto-start and auto-restart: off
//
// Returns an error if any option is invalid, or if auto-start is
// enabled without an executable to start.
//
// Example:
//
//	m, err := osufeed.New(
//	    osufeed.WithPort(24051),
//	    osufeed.WithUpdateInterval(250 * time.Millisecond),
//	)
func New(opts ...Option) (*Manager, error) {
	cfg := &managerConfig{
		host:              defaultHost,
		port:              defaultPort,
		feedPath:          defaultFeedPath,
		updateInterval:    defaultUpdateInterval,
		reconnectInterval: defaultReconnectInterval,
		maxReconnects:     defaultMaxReconnects,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.autoStart && cfg.executable == "" {
		return nil, errors.New("auto-start requires an executable path")
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		host:              cfg.host,
		port:              cfg.port,
		feedPath:          cfg.feedPath,
		updateInterval:    cfg.updateInterval,
		reconnectInterval: cfg.reconnectInterval,
		maxReconnects:     cfg.maxReconnects,
		autoRestart:       cfg.autoRestart,
		logger:            logger,
		live:              NewLiveState(),
		registry:          scan.NewRegistry(),
		engine:            scan.NewEngine(),
		state:             StateDisconnected,
		stateCallbacks:    cfg.stateCallbacks,
	}
	m.shadow.status = StatusNotRunning

	if err := m.registerHandlers(m.registry); err != nil {
		return nil, fmt.Errorf("registering snapshot handlers: %w", err)
	}

	if cfg.autoStart {
		sup := supervisor.New(cfg.executable, cfg.args, logger)
		sup.OnReady = m.onProcessReady
		sup.OnExit = m.onProcessExit
		m.sup = sup
	}

	return m, nil
}

// Start brings the session up.
//
// When supervising a companion process, Start launches it and returns;
// the feed connection is established in the background once the process
// announces readiness on its stdout. Without supervision, Start dials
// the configured host and port synchronously and returns the dial
// outcome.
//
// The context bounds the whole session: cancelling it stops the session
// the same way [Manager.Stop] does, including a supervised companion.
//
// Starting twice is benign: unless the state is [StateDisconnected],
// Start logs the attempt and returns nil without doing anything. That
// covers an active session as well as a failed one that left
// [StateError] behind; call Stop to reset the latter to disconnected
// before starting again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.State() != StateDisconnected {
		m.logger.Info("start ignored", "state", m.State().String())
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancelMu.Lock()
	m.runCtx, m.cancel = runCtx, cancel
	m.cancelMu.Unlock()

	m.running = true
	m.stopping.Store(false)

	go m.watchContext(runCtx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.updateLoop(runCtx)
	}()

	if m.sup != nil {
		m.logger.Info("starting companion process")
		m.setState(StateStartingProcess)
		if err := m.sup.Start(); err != nil {
			m.setState(StateError)
			m.unwindStartLocked()
			return fmt.Errorf("starting companion process: %w", err)
		}
		return nil
	}

	m.logger.Info("connecting to snapshot feed", "host", m.host, "port", m.port)
	m.setState(StateConnecting)
	if err := m.connectLocked(runCtx, m.port); err != nil {
		m.setState(StateError)
		m.unwindStartLocked()
		return fmt.Errorf("connecting to feed: %w", err)
	}
	return nil
}

// Stop ends the session: it closes the feed connection, stops a
// supervised companion process, cancels the heartbeat and waits for
// background work to finish.
//
// Stop is idempotent. After it returns the Manager can be started
// again; observed values in [LiveState] survive across sessions.
// Stopping a Manager with no active session only clears a leftover
// error state back to disconnected.
func (m *Manager) Stop() {
	m.stopping.Store(true)
	// Cancel before taking the lifecycle lock so an in-flight dial or
	// reconnect backs out promptly instead of being waited for.
	m.cancelRun()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		m.logger.Debug("stop: no active session")
		m.setState(StateDisconnected)
		m.stopping.Store(false)
		return
	}

	m.teardownLocked()
}

// Close stops the Manager. It implements [io.Closer] so a Manager can
// hang off the usual cleanup helpers; it always returns nil.
func (m *Manager) Close() error {
	m.Stop()
	return nil
}

// Live returns the live game state fed by the session. The returned
// value is valid for the lifetime of the Manager, across restarts.
func (m *Manager) Live() *LiveState {
	return m.live
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

// UpdateInterval returns the configured heartbeat interval.
func (m *Manager) UpdateInterval() time.Duration {
	return m.updateInterval
}

// setState moves to the given state and notifies callbacks. Re-entering
// the current state is a no-op: no log line, no callbacks.
func (m *Manager) setState(to ConnectionState) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.transitionLocked(to)
}

// compareAndSetState transitions only when the current state matches
// expect, reporting whether it did. Used where a stale asynchronous
// signal must not drive the machine from the wrong state.
func (m *Manager) compareAndSetState(expect, to ConnectionState) bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.state != expect {
		return false
	}
	m.transitionLocked(to)
	return true
}

// transitionLocked records the state change and notifies callbacks.
// Caller holds stateMu. Same-state transitions do nothing.
func (m *Manager) transitionLocked(to ConnectionState) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	m.logger.Info("connection state changed", "from", from.String(), "to", to.String())
	for _, cb := range m.stateCallbacks {
		invokeStateCallbackSafe(cb, from, to, m.logger)
	}
}

// runContext returns the current session context, or nil before the
// first Start.
func (m *Manager) runContext() context.Context {
	m.cancelMu.Lock()
	defer m.cancelMu.Unlock()
	return m.runCtx
}

// cancelRun cancels the session context if one exists.
func (m *Manager) cancelRun() {
	m.cancelMu.Lock()
	defer m.cancelMu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

// unwindStartLocked rolls back a failed Start. Caller holds mu.
func (m *Manager) unwindStartLocked() {
	m.cancelRun()
	m.wg.Wait()
	m.running = false
}

// teardownLocked ends the active session: it cancels the session
// context, closes the feed, stops a supervised companion and waits for
// the heartbeat to drain. Caller holds mu.
func (m *Manager) teardownLocked() {
	// Cancel under mu even when the caller cancelled on the way in: a
	// Start racing that earlier cancel can install a fresh session
	// context after it fired, and the wait below never returns while
	// that context lives.
	m.cancelRun()

	if m.feed != nil {
		m.feed.Close()
		m.feed = nil
	}
	if m.sup != nil {
		if err := m.sup.Stop(); err != nil {
			m.logger.Warn("stopping companion process", "error", err.Error())
		}
	}
	m.wg.Wait()

	m.running = false
	m.setState(StateDisconnected)
	m.stopping.Store(false)
	m.logger.Info("manager stopped")
}

// watchContext turns cancellation of the session context into a full
// teardown, so a cancelled parent context does not leave a supervised
// process behind. The session check and the teardown happen under one
// hold of mu, so a watcher waking up late cannot reap a successor
// session. Runs outside the waitgroup: the teardown waits on that.
func (m *Manager) watchContext(runCtx context.Context) {
	<-runCtx.Done()
	if m.stopping.Load() {
		// an explicit Stop owns this teardown
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.runContext() != runCtx {
		// the session already unwound, or a newer one owns the manager
		return
	}
	m.teardownLocked()
}

// connectLocked replaces the feed client and dials. Caller holds mu.
// The port parameter wins over the configured one; a supervised
// companion announces where it actually listens.
func (m *Manager) connectLocked(ctx context.Context, port int) error {
	if m.feed != nil {
		m.feed.Close()
	}

	url := fmt.Sprintf("ws://%s:%d%s", m.host, port, m.feedPath)
	c := feed.NewClient(url, m.reconnectInterval, m.maxReconnects, m.logger)
	c.OnFrame = m.handleFrame
	c.OnConnected = m.onFeedConnected
	c.OnDisconnected = func() { m.onFeedDisconnected(c) }
	c.OnGiveUp = m.onFeedGiveUp
	m.feed = c

	return c.Connect(ctx)
}

// onProcessReady runs on a supervisor goroutine when the companion
// announces the port it listens on.
func (m *Manager) onProcessReady(port int) {
	if m.stopping.Load() {
		return
	}
	// A ready signal from a previous incarnation of the process can
	// still be in flight after a restart; only the expected transition
	// proceeds.
	if !m.compareAndSetState(StateStartingProcess, StateWaitingForProcess) {
		m.logger.Debug("ignoring unexpected process ready signal", "port", port)
		return
	}
	m.logger.Info("companion process ready", "port", port)

	ctx := m.runContext()
	if ctx == nil {
		return
	}
	select {
	case <-time.After(processStabilizeDelay):
	case <-ctx.Done():
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopping.Load() || !m.running {
		return
	}
	if !m.compareAndSetState(StateWaitingForProcess, StateConnecting) {
		return
	}
	if err := m.connectLocked(ctx, port); err != nil {
		m.logger.Error("feed connection failed", "port", port, "error", err.Error())
		m.setState(StateError)
	}
}

// onProcessExit runs on a supervisor goroutine when the companion
// terminates on its own. Exits requested through the supervisor do not
// land here.
func (m *Manager) onProcessExit(err error) {
	if m.stopping.Load() {
		return
	}
	if err != nil {
		m.logger.Warn("companion process exited", "error", err.Error())
	} else {
		m.logger.Warn("companion process exited")
	}

	if !m.autoRestart {
		m.endSession("companion process exited")
		return
	}

	// Pace the relaunch so a crash-looping companion does not spin.
	ctx := m.runContext()
	if ctx == nil {
		return
	}
	select {
	case <-time.After(m.reconnectInterval):
	case <-ctx.Done():
		return
	}
	m.restartCompanion("companion process exited")
}

// onFeedConnected runs whenever a dial succeeds, both for the first
// connection and for every reconnect.
func (m *Manager) onFeedConnected() {
	m.lastFrame.Store(time.Now().UnixNano())
	m.setState(StateConnected)
}

// onFeedDisconnected runs on the transport's read goroutine when the
// connection is lost outside of teardown.
func (m *Manager) onFeedDisconnected(c *feed.Client) {
	if m.stopping.Load() {
		return
	}
	if c.Retrying() {
		m.setState(StateReconnecting)
		return
	}
	// The drop is final for the transport. Hand it to process
	// supervision if that can help, otherwise end the session.
	if m.autoRestart && m.sup != nil && m.State() != StateDisconnected {
		go m.restartCompanion("feed disconnected")
		return
	}
	m.endSession("feed disconnected")
}

// onFeedGiveUp runs after the transport exhausted its reconnect budget.
func (m *Manager) onFeedGiveUp() {
	if m.stopping.Load() {
		return
	}
	if m.autoRestart && m.sup != nil {
		go m.restartCompanion("reconnect budget exhausted")
		return
	}
	m.endSession("reconnect budget exhausted")
}

// restartCompanion tears down the current feed and relaunches the
// companion process. Must not be called from a feed goroutine; the
// feed callbacks dispatch it on a fresh one.
func (m *Manager) restartCompanion(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopping.Load() || !m.running || m.sup == nil {
		return
	}
	if m.State() == StateStartingProcess && m.sup.Running() {
		// A restart is already under way. Without a live process the
		// state alone does not count: a companion that died during
		// startup still needs its relaunch.
		return
	}
	m.logger.Info("restarting companion process", "reason", reason)

	if m.feed != nil {
		m.feed.Close()
		m.feed = nil
	}
	m.setState(StateStartingProcess)

	var err error
	if m.sup.Running() {
		err = m.sup.Restart()
	} else {
		err = m.sup.Start()
	}
	if err != nil {
		m.logger.Error("companion restart failed", "error", err.Error())
		m.setState(StateError)
	}
}

// endSession marks the session over after a final, unrecovered loss.
// The heartbeat dies with the context; a later Stop reaps it.
func (m *Manager) endSession(reason string) {
	m.logger.Info("session ended", "reason", reason)
	m.cancelRun()
	m.setState(StateDisconnected)
}

// handleFrame processes one snapshot document on the transport's read
// goroutine. Values are staged during the scan and committed only when
// the whole document parsed cleanly, so a malformed frame leaves every
// committed value exactly as it was.
func (m *Manager) handleFrame(data []byte) {
	m.lastFrame.Store(time.Now().UnixNano())

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			// log full context for debugging
			m.logger.Error("frame handler panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)
		}
	}()

	m.pending = framePending{}
	if err := m.engine.Parse(data, m.registry); err != nil {
		m.logger.Warn("discarding malformed frame", "size", len(data), "error", err.Error())
		return
	}
	m.applyFrame()
}

// updateLoop is the background heartbeat. It does not drive the
// connection; it only watches for a connected feed that went quiet and
// says so once, then again once the feed resumes.
func (m *Manager) updateLoop(ctx context.Context) {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	stale := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.State() != StateConnected {
				stale = false
				continue
			}
			quiet := time.Since(time.Unix(0, m.lastFrame.Load()))
			if quiet > staleAfterIntervals*m.updateInterval {
				if !stale {
					stale = true
					m.logger.Warn("feed is connected but quiet", "quiet_for", quiet.Round(time.Millisecond).String())
				}
			} else if stale {
				stale = false
				m.logger.Info("feed resumed")
			}
		}
	}
}

// invokeStateCallbackSafe calls a state callback with panic recovery.
// Panics are logged but do not propagate.
func invokeStateCallbackSafe(cb StateCallback, from, to ConnectionState, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("state callback panicked",
				"panic", r,
				"from", from.String(),
				"to", to.String(),
			)
		}
	}()
	cb(from, to)
}
