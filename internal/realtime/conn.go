package realtime

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/taskhub/internal/events"
)

// Timing and buffering parameters for websocket connections.
const (
	// writeWait is the deadline for a single outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead. Pings are sent at pingPeriod to keep it alive.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBufferSize bounds the per-connection outbound queue. Delivery is
	// fire-and-forget: a client too slow to drain its queue loses events
	// and converges later via polling.
	sendBufferSize = 32
)

// ErrSendBufferFull is returned by Send when the connection's outbound
// queue is full. The registry treats it like any transport error and
// evicts the connection.
var ErrSendBufferFull = errors.New("connection send buffer full")

// ErrConnClosed is returned by Send after the connection has been closed.
var ErrConnClosed = errors.New("connection closed")

// Conn is a live client connection the registry can deliver envelopes to.
// Implementations must make Send non-blocking: delivery happens on the
// mutation path and must never wait on a slow client.
type Conn interface {
	// ID returns the connection's unique identifier.
	ID() uuid.UUID

	// Send queues the envelope for delivery. Returns an error if the
	// connection is closed or its outbound queue is full.
	Send(envelope events.Envelope) error

	// Close tears down the transport. Safe to call more than once.
	Close() error
}

// wsConn adapts a gorilla websocket connection to the Conn interface.
// Writes are serialized through the outbound channel and a single
// writePump goroutine, as required by gorilla/websocket.
type wsConn struct {
	id        uuid.UUID
	ws        *websocket.Conn
	out       chan events.Envelope
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// Ensure wsConn implements Conn
var _ Conn = (*wsConn)(nil)

// newWSConn wraps an upgraded websocket connection.
// The caller must start the pumps with run().
func newWSConn(ws *websocket.Conn, logger *slog.Logger) *wsConn {
	id := uuid.New()
	return &wsConn{
		id:     id,
		ws:     ws,
		out:    make(chan events.Envelope, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger.With("connection_id", id),
	}
}

// ID implements Conn.
func (c *wsConn) ID() uuid.UUID {
	return c.id
}

// Send implements Conn. It never blocks: if the outbound buffer is full the
// envelope is dropped and an error returned so the registry can evict the
// connection.
func (c *wsConn) Send(envelope events.Envelope) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.out <- envelope:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close implements Conn. Both pumps and the registry's eviction path call
// it concurrently, so the teardown runs exactly once.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// writePump drains the outbound queue onto the wire and keeps the
// connection alive with periodic pings. It exits when the connection is
// closed or a write fails.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case envelope := <-c.out:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteJSON(envelope); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump consumes and discards inbound frames to process control messages
// and detect closure. Clients never send application data over this
// channel; all their writes go through the REST surface.
// Blocks until the connection dies.
func (c *wsConn) readPump() {
	defer func() {
		_ = c.Close()
	}()

	c.ws.SetReadLimit(512)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
	}
}
