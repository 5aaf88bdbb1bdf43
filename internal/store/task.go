package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub/internal/domain"
)

// TaskFilters narrows the result set of a task listing.
// Zero-valued fields are ignored.
type TaskFilters struct {
	// Status filters tasks by lifecycle state.
	Status domain.TaskStatus

	// Priority filters tasks by urgency.
	Priority domain.TaskPriority

	// AssigneeID filters tasks assigned to a specific user.
	AssigneeID *uuid.UUID

	// CreatorID filters tasks created by a specific user.
	CreatorID *uuid.UUID
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid.
	// Returns ErrInvalidEntity if the creator or assignee does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks matching the given filters, newest first.
	List(ctx context.Context, filters TaskFilters) ([]*domain.Task, error)

	// Update saves changes to an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	// Returns validation errors from the domain Task if data is invalid.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task from the store by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
