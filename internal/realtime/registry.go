// Package realtime implements the authenticated connection registry that
// tracks live websocket connections grouped into one room per user.
//
// The registry is the addressable leaf of the notification pipeline:
// dispatchers hand it envelopes addressed to a user or to everyone, and it
// attempts delivery exactly once per live connection. Rooms exist only while
// at least one connection for the user is live; events addressed to an
// absent room are dropped, never queued.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/service/auth"
)

// Registry tracks live connections grouped by user ID.
// All methods are safe for concurrent use; the room map is guarded by a
// single RWMutex so a delivery never observes a half-removed connection.
type Registry struct {
	jwtService auth.JWTService
	logger     *slog.Logger

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[Conn]struct{}
	users map[Conn]uuid.UUID
}

// Ensure Registry implements the dispatcher's delivery interface
var _ events.Deliverer = (*Registry)(nil)

// NewRegistry creates an empty Registry that authenticates handshakes with
// the given JWT service.
func NewRegistry(jwtService auth.JWTService, logger *slog.Logger) *Registry {
	return &Registry{
		jwtService: jwtService,
		logger:     logger.With("component", "connection_registry"),
		rooms:      make(map[uuid.UUID]map[Conn]struct{}),
		users:      make(map[Conn]uuid.UUID),
	}
}

// Authenticate verifies the signed handshake token and returns the user ID
// from its subject claim. It runs before any registration; a failure here
// must close the transport without side effects.
// Returns auth.ErrMissingToken for an empty token, or the validation error
// from the JWT service.
func (r *Registry) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, auth.ErrMissingToken
	}

	claims, err := r.jwtService.ValidateToken(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}

	return claims.UserID, nil
}

// Register adds the connection to the user's room, creating the room if this
// is the user's first live connection. Idempotent under duplicate calls for
// the same connection, so multiple tabs of one user each register once and
// re-registration is harmless.
func (r *Registry) Register(conn Conn, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[conn]; ok {
		return
	}

	room, ok := r.rooms[userID]
	if !ok {
		room = make(map[Conn]struct{})
		r.rooms[userID] = room
	}
	room[conn] = struct{}{}
	r.users[conn] = userID

	r.logger.Debug("connection registered",
		"connection_id", conn.ID(),
		"user_id", userID,
		"room_size", len(room))
}

// Unregister removes the connection from its room and deletes the room if it
// becomes empty. No-op for connections that were never registered or were
// already removed.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(conn)
}

// unregisterLocked removes the connection. Caller must hold the write lock.
func (r *Registry) unregisterLocked(conn Conn) {
	userID, ok := r.users[conn]
	if !ok {
		return
	}
	delete(r.users, conn)

	room := r.rooms[userID]
	delete(room, conn)
	if len(room) == 0 {
		delete(r.rooms, userID)
	}

	r.logger.Debug("connection unregistered",
		"connection_id", conn.ID(),
		"user_id", userID,
		"room_size", len(room))
}

// DeliverToUser sends the envelope to every live connection in the user's
// room. Best-effort, at-most-once: an absent room is an expected condition
// (logged, skipped), and a connection whose send fails is unregistered and
// closed without the error propagating to the caller.
func (r *Registry) DeliverToUser(userID uuid.UUID, envelope events.Envelope) {
	r.mu.RLock()
	room, ok := r.rooms[userID]
	if !ok {
		r.mu.RUnlock()
		r.logger.Debug("delivery miss: no live connections for user",
			"user_id", userID,
			"kind", envelope.Kind)
		return
	}

	conns := make([]Conn, 0, len(room))
	for conn := range room {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	r.send(conns, envelope)
}

// DeliverToAll sends the envelope to every connection in every room.
func (r *Registry) DeliverToAll(envelope events.Envelope) {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.users))
	for conn := range r.users {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	r.send(conns, envelope)
}

// send attempts delivery to each connection, evicting the ones whose
// transport failed. Transport errors never reach the mutation that
// triggered the event.
func (r *Registry) send(conns []Conn, envelope events.Envelope) {
	var failed []Conn
	for _, conn := range conns {
		if err := conn.Send(envelope); err != nil {
			r.logger.Warn("failed to deliver event, evicting connection",
				"connection_id", conn.ID(),
				"kind", envelope.Kind,
				"error", err)
			failed = append(failed, conn)
		}
	}

	if len(failed) == 0 {
		return
	}

	r.mu.Lock()
	for _, conn := range failed {
		r.unregisterLocked(conn)
	}
	r.mu.Unlock()

	for _, conn := range failed {
		if err := conn.Close(); err != nil {
			r.logger.Debug("error closing evicted connection",
				"connection_id", conn.ID(),
				"error", err)
		}
	}
}

// ConnectionCount returns the number of live connections for the user.
func (r *Registry) ConnectionCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[userID])
}

// RoomCount returns the number of rooms with at least one live connection.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
