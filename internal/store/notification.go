package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub/internal/domain"
)

// NotificationStore defines the interface for notification data persistence.
// Rows written here are the system of record for fan-out: live delivery is
// best-effort, but a recipient that missed the push converges on this store
// by polling.
type NotificationStore interface {
	// Create saves a new notification to the store.
	// Returns validation errors from the domain Notification if data is invalid.
	Create(ctx context.Context, notification *domain.Notification) error

	// ListByUser returns up to limit notifications owned by the given user,
	// newest first. A non-positive limit applies the default of 50.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)

	// CountUnread returns the number of unread notifications owned by the
	// given user.
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead marks a single notification as read. Idempotent: marking an
	// already-read notification succeeds without effect.
	// Returns ErrNotificationNotFound if the notification does not exist or
	// is owned by a different user.
	MarkRead(ctx context.Context, userID, id uuid.UUID) error

	// MarkAllRead marks every unread notification owned by the given user as
	// read. Idempotent: a second call is a no-op.
	MarkAllRead(ctx context.Context, userID uuid.UUID) error

	// Delete removes a notification owned by the given user.
	// Returns ErrNotificationNotFound if the notification does not exist or
	// is owned by a different user.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// WithTx returns a new NotificationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) NotificationStore
}
