package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrEmptyTaskTitle   = errors.New("task title cannot be empty")
	ErrTaskTitleTooLong = errors.New("task title must be at most 200 characters long")
	ErrEmptyCreatorID   = errors.New("task creator ID cannot be empty")
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Valid task statuses
const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// IsValid returns true if the status is one of the defined task statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

// Valid task priorities
const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// IsValid returns true if the priority is one of the defined task priorities.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task represents a unit of work tracked by the application.
// A task is always owned by its creator and may optionally be
// assigned to another user.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatorID   uuid.UUID    `json:"creator_id"`
	AssigneeID  *uuid.UUID   `json:"assignee_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewTask creates a new Task owned by the given creator.
// It generates a new UUID for the task ID, defaults the status to TODO and
// the priority to MEDIUM, and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(title, description string, creatorID uuid.UUID) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Status:      TaskStatusTodo,
		Priority:    TaskPriorityMedium,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTaskTitle
	}

	if len(t.Title) > 200 {
		return ErrTaskTitleTooLong
	}

	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}

	if !t.Priority.IsValid() {
		return ErrInvalidTaskPriority
	}

	if t.CreatorID == uuid.Nil {
		return ErrEmptyCreatorID
	}

	return nil
}

// TaskSnapshot captures the fields of a task that drive notification
// fan-out decisions. Snapshots are taken before and after a mutation and
// compared by the fanout engine; they are never persisted.
type TaskSnapshot struct {
	ID         uuid.UUID
	Title      string
	Status     TaskStatus
	CreatorID  uuid.UUID
	AssigneeID *uuid.UUID
}

// Snapshot returns a TaskSnapshot of the task's current state.
// The assignee pointer is copied so that later mutations of the task
// do not change the snapshot.
func (t *Task) Snapshot() TaskSnapshot {
	var assigneeID *uuid.UUID
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		assigneeID = &id
	}

	return TaskSnapshot{
		ID:         t.ID,
		Title:      t.Title,
		Status:     t.Status,
		CreatorID:  t.CreatorID,
		AssigneeID: assigneeID,
	}
}

// Assignee returns the snapshot's assignee ID and whether one is set.
func (s TaskSnapshot) Assignee() (uuid.UUID, bool) {
	if s.AssigneeID == nil {
		return uuid.Nil, false
	}
	return *s.AssigneeID, true
}
