package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	closeWriteTimeout       = 5 * time.Second
)

// maxFrameBytes caps a single feed frame. Full snapshots run tens of
// kilobytes; the cap only guards against a runaway peer.
const maxFrameBytes = 8 << 20 // 8MB

// Client maintains a WebSocket subscription to the companion's snapshot
// feed.
//
// A Client is created once per orchestrator and survives connection
// cycles: Connect establishes a session, Close tears it down, and the
// same Client may connect again afterwards (the orchestrator does this
// when it restarts the companion process).
//
// Callback fields must be assigned before the first Connect and not
// changed afterwards. All callbacks are invoked synchronously from the
// client's own goroutines:
//
//   - OnFrame: one complete snapshot document; the next frame is not
//     read until the callback returns
//   - OnConnected: after every successful dial, first and reconnects alike
//   - OnDisconnected: the connection was lost outside Close
//   - OnGiveUp: the reconnect budget is exhausted; what happens next is
//     the caller's decision
type Client struct {
	url               string
	reconnectInterval time.Duration
	maxReconnects     int
	logger            *slog.Logger

	OnFrame        func(data []byte)
	OnConnected    func()
	OnDisconnected func()
	OnGiveUp       func()

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	retrying  bool
	closing   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// retryMu serializes reconnect sequences; TryLock keeps a second
	// disconnect signal from starting a concurrent sequence.
	retryMu sync.Mutex
}

// NewClient creates a feed [Client] for the given WebSocket URL.
//
// reconnectInterval is the base delay of the linear backoff; the delay
// before attempt n is n times the base. maxReconnects bounds one
// reconnect sequence; zero disables reconnecting entirely, so any lost
// connection is immediately final.
func NewClient(url string, reconnectInterval time.Duration, maxReconnects int, logger *slog.Logger) *Client {
	return &Client{
		url:               url,
		reconnectInterval: reconnectInterval,
		maxReconnects:     maxReconnects,
		logger:            logger,
	}
}

// URL returns the feed URL this client dials.
func (c *Client) URL() string {
	return c.url
}

// Connect dials the feed and starts the read loop.
//
// Connect is synchronous: when it returns nil the connection is live and
// OnConnected has fired. The provided context bounds the whole session,
// not just the dial: cancelling it aborts any reconnect sequence and
// silences the disconnect path, though only Close releases a socket the
// read loop is blocked on. If ctx is nil, context.Background() is used.
func (c *Client) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return errors.New("feed already connected")
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.closing = false
	c.mu.Unlock()

	conn, err := c.dial(sessionCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info("feed connected", "url", c.url)
	if c.OnConnected != nil {
		c.OnConnected()
	}

	go func() {
		defer c.wg.Done()
		c.readLoop(sessionCtx, conn)
	}()
	return nil
}

// Connected reports whether a connection is currently live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Retrying reports whether a reconnect sequence is in progress. The flag
// is already set when OnDisconnected fires, so the callback can tell a
// recoverable drop from a final one.
func (c *Client) Retrying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retrying
}

// Close tears down the current session: it sends a best-effort close
// frame, closes the socket, cancels any reconnect sequence, and waits
// for the client's goroutines to finish.
//
// Close is idempotent, and its own teardown never fires OnDisconnected.
// The client may Connect again afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	c.conn = nil
	c.connected = false
	cancel := c.cancel
	c.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		_ = conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxFrameBytes)
	return conn, nil
}

// readLoop reads frames until the connection fails, then hands off to
// the disconnect path. Frames are delivered synchronously; backpressure
// from a slow consumer simply slows the reads.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(ctx, err)
			return
		}
		if c.OnFrame != nil {
			c.OnFrame(data)
		}
	}
}

// handleReadError classifies a read failure and, when it was unexpected
// and the budget allows, runs the reconnect sequence on the same
// goroutine the read loop died on.
func (c *Client) handleReadError(ctx context.Context, err error) {
	c.mu.Lock()
	c.connected = false
	c.conn = nil
	closing := c.closing
	c.mu.Unlock()

	// deliberate shutdown paths stay silent
	if closing || ctx.Err() != nil {
		return
	}

	normal := websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	willRetry := !normal && c.maxReconnects > 0
	if normal {
		c.logger.Info("feed closed by peer", "url", c.url)
	} else {
		c.logger.Warn("feed connection lost", "url", c.url, "error", err)
	}

	// the flag must be visible before OnDisconnected fires
	c.mu.Lock()
	c.retrying = willRetry
	c.mu.Unlock()

	if c.OnDisconnected != nil {
		c.OnDisconnected()
	}
	if willRetry {
		c.reconnect(ctx)
	}
}

// reconnect runs one bounded reconnect sequence with linear backoff.
// A successful dial ends the sequence, so the next outage starts over
// at attempt one.
func (c *Client) reconnect(ctx context.Context) {
	if !c.retryMu.TryLock() {
		return
	}
	defer c.retryMu.Unlock()
	defer func() {
		c.mu.Lock()
		c.retrying = false
		c.mu.Unlock()
	}()

	for attempt := 1; attempt <= c.maxReconnects; attempt++ {
		delay := time.Duration(attempt) * c.reconnectInterval
		c.logger.Info("feed reconnecting",
			"attempt", attempt,
			"max_attempts", c.maxReconnects,
			"delay", delay,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("feed reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.connected = true
		c.retrying = false
		c.wg.Add(1)
		c.mu.Unlock()

		c.logger.Info("feed reconnected", "url", c.url, "attempt", attempt)
		if c.OnConnected != nil {
			c.OnConnected()
		}

		go func() {
			defer c.wg.Done()
			c.readLoop(ctx, conn)
		}()
		return
	}

	c.logger.Error("feed reconnect attempts exhausted", "attempts", c.maxReconnects)
	if c.OnGiveUp != nil {
		c.OnGiveUp()
	}
}
