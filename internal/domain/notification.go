package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyNotificationID     = errors.New("notification ID cannot be empty")
	ErrEmptyNotificationUserID = errors.New("notification user ID cannot be empty")
	ErrEmptyNotificationText   = errors.New("notification message cannot be empty")
)

// NotificationKind classifies the task transition a notification reports.
type NotificationKind string

// Valid notification kinds
const (
	NotificationTaskAssigned   NotificationKind = "TASK_ASSIGNED"
	NotificationTaskUnassigned NotificationKind = "TASK_UNASSIGNED"
	NotificationTaskCompleted  NotificationKind = "TASK_COMPLETED"
)

// IsValid returns true if the kind is one of the defined notification kinds.
func (k NotificationKind) IsValid() bool {
	switch k {
	case NotificationTaskAssigned, NotificationTaskUnassigned, NotificationTaskCompleted:
		return true
	}
	return false
}

// Notification is a durable, per-user record of a task state change.
// It is the system of record for fan-out: a row is written regardless of
// whether the live push reaches the recipient. Notifications are created
// by the fanout engine, mutated only by mark-read operations, and deleted
// explicitly by their owning user.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	TaskID    *uuid.UUID       `json:"task_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification creates a new unread Notification for the given user.
// It generates a new UUID for the notification ID and sets the creation
// timestamp. Returns an error if validation fails.
func NewNotification(
	userID uuid.UUID,
	kind NotificationKind,
	message string,
	taskID *uuid.UUID,
) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		TaskID:    taskID,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
// Returns an error if any field fails validation.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNotificationID
	}

	if n.UserID == uuid.Nil {
		return ErrEmptyNotificationUserID
	}

	if !n.Kind.IsValid() {
		return ErrInvalidNotificationKind
	}

	if n.Message == "" {
		return ErrEmptyNotificationText
	}

	return nil
}
