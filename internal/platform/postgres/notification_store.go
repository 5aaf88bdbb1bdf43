package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// defaultNotificationListLimit caps a notification listing when the caller
// passes a non-positive limit.
const defaultNotificationListLimit = 50

// PostgresNotificationStore implements the store.NotificationStore interface
// using a PostgreSQL database as the storage backend. Every query that
// touches an existing row filters by user_id as well as id, so ownership is
// enforced at the SQL level and a foreign row is indistinguishable from a
// missing one.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// NewPostgresNotificationStore creates a new PostgreSQL implementation of
// the NotificationStore interface. If logger is nil, the default logger is
// used.
func NewPostgresNotificationStore(db store.DBTX, log *slog.Logger) *PostgresNotificationStore {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresNotificationStore{
		db:     db,
		logger: log.With("component", "notification_store"),
	}
}

// Create implements store.NotificationStore.Create.
func (s *PostgresNotificationStore) Create(ctx context.Context, notification *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := notification.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (id, user_id, kind, message, task_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Kind,
		notification.Message,
		notification.TaskID,
		notification.IsRead,
		notification.CreatedAt,
	)
	if err != nil {
		log.Error("failed to insert notification",
			"error", err,
			"notification_id", notification.ID,
			"user_id", notification.UserID)
		return MapError(err)
	}

	return nil
}

// ListByUser implements store.NotificationStore.ListByUser.
func (s *PostgresNotificationStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationListLimit
	}

	query := `
		SELECT id, user_id, kind, message, task_id, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Kind,
			&n.Message,
			&n.TaskID,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		n.CreatedAt = n.CreatedAt.UTC()
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return notifications, nil
}

// CountUnread implements store.NotificationStore.CountUnread.
func (s *PostgresNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// MarkRead implements store.NotificationStore.MarkRead. Marking an
// already-read notification succeeds without changing anything.
func (s *PostgresNotificationStore) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`
	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// MarkAllRead implements store.NotificationStore.MarkAllRead. Touching zero
// rows is success: the user simply had nothing unread.
func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE user_id = $1 AND is_read = FALSE
	`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return MapError(err)
	}
	return nil
}

// Delete implements store.NotificationStore.Delete.
func (s *PostgresNotificationStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM notifications WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// WithTx implements store.NotificationStore.WithTx.
func (s *PostgresNotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return &PostgresNotificationStore{db: tx, logger: s.logger}
}
