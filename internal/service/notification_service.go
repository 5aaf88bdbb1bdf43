package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/store"
)

// NotificationService provides read and lifecycle operations over a user's
// own notifications. Ownership is enforced by the store layer: a foreign
// notification is reported as not found, never as forbidden.
type NotificationService interface {
	// List returns up to limit of the user's notifications, newest first.
	// A non-positive limit applies the store default.
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)

	// UnreadCount returns the number of unread notifications the user has.
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead marks one of the user's notifications as read. Idempotent.
	MarkRead(ctx context.Context, userID, id uuid.UUID) error

	// MarkAllRead marks all of the user's notifications as read. Idempotent.
	MarkAllRead(ctx context.Context, userID uuid.UUID) error

	// Delete removes one of the user's notifications.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// NotificationServiceImpl implements the NotificationService interface.
type NotificationServiceImpl struct {
	notificationStore store.NotificationStore
	logger            *slog.Logger
}

var _ NotificationService = (*NotificationServiceImpl)(nil)

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	notificationStore store.NotificationStore,
	logger *slog.Logger,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		notificationStore: notificationStore,
		logger:            logger.With("component", "notification_service"),
	}
}

// List returns the user's notifications, newest first.
func (s *NotificationServiceImpl) List(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.Notification, error) {
	notifications, err := s.notificationStore.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error("failed to list notifications", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount returns the user's unread notification count.
func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.notificationStore.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count unread notifications", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks a single notification as read.
func (s *NotificationServiceImpl) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.notificationStore.MarkRead(ctx, userID, id); err != nil {
		if !errors.Is(err, store.ErrNotificationNotFound) {
			s.logger.Error("failed to mark notification read",
				"error", err,
				"user_id", userID,
				"notification_id", id)
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification as read.
func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.notificationStore.MarkAllRead(ctx, userID); err != nil {
		s.logger.Error("failed to mark all notifications read", "error", err, "user_id", userID)
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification.
func (s *NotificationServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.notificationStore.Delete(ctx, userID, id); err != nil {
		if !errors.Is(err, store.ErrNotificationNotFound) {
			s.logger.Error("failed to delete notification",
				"error", err,
				"user_id", userID,
				"notification_id", id)
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}
