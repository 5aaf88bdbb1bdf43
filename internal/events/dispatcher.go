package events

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Deliverer is the slice of the connection registry the dispatcher needs.
// Delivery is best-effort and at-most-once: a target with no live
// connections is silently skipped, and the deliverer never reports
// per-connection transport errors back to the caller.
type Deliverer interface {
	// DeliverToUser sends the envelope to every live connection of the user.
	// No-op if the user has no live connections.
	DeliverToUser(userID uuid.UUID, envelope Envelope)

	// DeliverToAll sends the envelope to every live connection.
	DeliverToAll(envelope Envelope)
}

// Dispatcher stamps envelopes and routes them through the connection
// registry. It is the single emission path: per-recipient ordering follows
// from every event of one mutation passing through the same dispatcher
// call sequence.
type Dispatcher struct {
	deliverer Deliverer
	timeFunc  func() time.Time // Injectable for testing
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher routing through the given deliverer.
func NewDispatcher(deliverer Deliverer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		deliverer: deliverer,
		timeFunc:  time.Now,
		logger:    logger.With("component", "event_dispatcher"),
	}
}

// ToUser stamps the envelope and delivers it to one user's room.
func (d *Dispatcher) ToUser(userID uuid.UUID, envelope Envelope) {
	envelope.EmittedAt = d.timeFunc().UTC()

	d.logger.Debug("dispatching event to user",
		"kind", envelope.Kind,
		"user_id", userID)

	d.deliverer.DeliverToUser(userID, envelope)
}

// Broadcast stamps the envelope and delivers it to every connected client.
func (d *Dispatcher) Broadcast(envelope Envelope) {
	envelope.EmittedAt = d.timeFunc().UTC()

	d.logger.Debug("broadcasting event", "kind", envelope.Kind)

	d.deliverer.DeliverToAll(envelope)
}
