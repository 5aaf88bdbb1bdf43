// Package client implements the reconciliation side of the realtime
// protocol: a websocket subscription that turns pushed events into cache
// invalidations, backed by interval polling for the gaps push cannot cover.
//
// The client never merges event payloads into local state. Any task event
// and any new-notification event invalidates the corresponding cache and
// the owner re-fetches through the REST API, so out-of-order or missed
// deliveries cannot corrupt local state; push only makes convergence fast,
// polling makes it certain.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/phrazzld/taskhub/internal/events"
)

// Default reconciliation parameters, applied when the corresponding Config
// field is zero.
const (
	DefaultPollInterval         = 30 * time.Second
	DefaultReconnectMaxAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
)

// ErrReconnectExhausted is returned by Run after the configured number of
// consecutive failed connection attempts.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// TaskCache is the client-local task state. Invalidate marks it stale; the
// owner re-fetches from the server on next access.
type TaskCache interface {
	Invalidate(ctx context.Context)
}

// NotificationCache is the client-local notification state (list and unread
// count). Invalidate marks it stale.
type NotificationCache interface {
	Invalidate(ctx context.Context)
}

// Config holds the connection and reconciliation parameters for a Client.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://host:8080/ws".
	URL string

	// Token is the bearer token presented once, at the handshake. The
	// server re-derives room membership from it on every reconnect, so the
	// client carries no membership state across connections.
	Token string

	// PollInterval is the fallback polling cadence for notification state.
	PollInterval time.Duration

	// ReconnectMaxAttempts bounds consecutive failed connection attempts
	// before Run gives up.
	ReconnectMaxAttempts int

	// ReconnectDelay is the fixed pause between connection attempts.
	ReconnectDelay time.Duration

	// OnNotification, when set, is called for each notification:new event
	// after the notification cache has been invalidated. Used for local
	// alerts; delivery of the callback is best-effort like the push itself.
	OnNotification func(events.Envelope)
}

// Client maintains one websocket subscription per session and reconciles
// local caches against pushed events and interval polls.
type Client struct {
	cfg           Config
	tasks         TaskCache
	notifications NotificationCache
	dialer        *websocket.Dialer
	logger        *slog.Logger
}

// NewClient creates a reconciliation client. Zero-valued Config fields fall
// back to the package defaults.
func NewClient(cfg Config, tasks TaskCache, notifications NotificationCache, logger *slog.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReconnectMaxAttempts <= 0 {
		cfg.ReconnectMaxAttempts = DefaultReconnectMaxAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Client{
		cfg:           cfg,
		tasks:         tasks,
		notifications: notifications,
		dialer:        websocket.DefaultDialer,
		logger:        logger.With("component", "reconciliation_client"),
	}
}

// Run connects to the server and processes events until the context is
// canceled or reconnection attempts are exhausted. The polling fallback
// runs for the whole lifetime of Run, including while the push channel is
// down, so callers converge on server state either way.
//
// Returns nil on context cancellation and ErrReconnectExhausted (wrapped)
// when the connection cannot be re-established.
func (c *Client) Run(ctx context.Context) error {
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	go c.pollLoop(pollCtx)

	attempts := 0
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			attempts++
			c.logger.Warn("connection attempt failed",
				"error", err,
				"attempt", attempts,
				"max_attempts", c.cfg.ReconnectMaxAttempts)
			if attempts >= c.cfg.ReconnectMaxAttempts {
				return fmt.Errorf("%w after %d attempts", ErrReconnectExhausted, attempts)
			}
			if !c.sleep(ctx, c.cfg.ReconnectDelay) {
				return nil
			}
			continue
		}

		attempts = 0
		c.logger.Info("connected")
		c.readLoop(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}

		c.logger.Warn("connection lost, reconnecting")
		if !c.sleep(ctx, c.cfg.ReconnectDelay) {
			return nil
		}
	}
}

// dial performs one handshake attempt. The token travels in the
// Authorization header; browsers use the query-parameter form instead, and
// the server accepts both.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.Token)

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake rejected with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial server: %w", err)
	}
	return conn, nil
}

// readLoop consumes events from one connection until it fails or the
// context is canceled. Transport errors end the session; the caller decides
// whether to reconnect.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer func() { _ = conn.Close() }()

	for {
		var envelope events.Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			if ctx.Err() == nil {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}
		c.handleEvent(ctx, envelope)
	}
}

// handleEvent maps one pushed event onto cache invalidations.
func (c *Client) handleEvent(ctx context.Context, envelope events.Envelope) {
	switch {
	case envelope.Kind == events.KindNotificationNew:
		c.notifications.Invalidate(ctx)
		if c.cfg.OnNotification != nil {
			c.cfg.OnNotification(envelope)
		}
	case envelope.Kind.IsTaskEvent():
		c.tasks.Invalidate(ctx)
	default:
		c.logger.Debug("ignoring unknown event kind", "kind", envelope.Kind)
	}
}

// pollLoop invalidates the notification cache at the configured interval.
// Poll and push converge on the same durable store, so the extra refetches
// are idempotent.
func (c *Client) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.notifications.Invalidate(ctx)
		}
	}
}

// sleep waits for d or until the context is canceled. Reports false on
// cancellation.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
