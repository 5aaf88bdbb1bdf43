package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/fanout"
	"github.com/phrazzld/taskhub/internal/store"
)

// CreateTaskInput carries the fields accepted when creating a task.
// Optional fields left nil keep their domain defaults.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    *domain.TaskPriority
	DueDate     *time.Time
	AssigneeID  *uuid.UUID
}

// UpdateTaskInput carries a partial update. Nil fields are left unchanged.
// The assignee is special: clearing it is a meaningful change, so it travels
// with an explicit Set flag rather than relying on nil.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     *time.Time
	AssigneeSet bool
	AssigneeID  *uuid.UUID
}

// TaskService provides task CRUD with permission checks. Every mutation
// diffs the task's before and after snapshots and runs the resulting
// fan-out, so notifications and realtime events follow from state
// transitions rather than from individual call sites.
type TaskService interface {
	// Create creates a new task owned by the acting user.
	Create(ctx context.Context, actorID uuid.UUID, input CreateTaskInput) (*domain.Task, error)

	// GetByID retrieves a task. Any authenticated user may read any task.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks matching the filters, newest first.
	List(ctx context.Context, filters store.TaskFilters) ([]*domain.Task, error)

	// Update applies a partial update. Only the task's creator or current
	// assignee may update it; returns ErrNotTaskParticipant otherwise.
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateTaskInput) (*domain.Task, error)

	// Delete removes a task. Only the creator may delete it; returns
	// ErrNotTaskCreator otherwise.
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

// TaskServiceImpl implements the TaskService interface.
type TaskServiceImpl struct {
	db        *sql.DB
	taskStore store.TaskStore
	applier   *fanout.Applier
	logger    *slog.Logger
	runInTx   func(ctx context.Context, db *sql.DB, fn store.TxFn) error // Injectable for testing
}

var _ TaskService = (*TaskServiceImpl)(nil)

// NewTaskService creates a new TaskService.
func NewTaskService(
	db *sql.DB,
	taskStore store.TaskStore,
	applier *fanout.Applier,
	logger *slog.Logger,
) *TaskServiceImpl {
	return &TaskServiceImpl{
		db:        db,
		taskStore: taskStore,
		applier:   applier,
		logger:    logger.With("component", "task_service"),
		runInTx:   store.RunInTransaction,
	}
}

// Create creates a task and fans out the creation.
func (s *TaskServiceImpl) Create(
	ctx context.Context,
	actorID uuid.UUID,
	input CreateTaskInput,
) (*domain.Task, error) {
	task, err := domain.NewTask(input.Title, input.Description, actorID)
	if err != nil {
		return nil, err
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	task.DueDate = input.DueDate
	task.AssigneeID = input.AssigneeID
	if err := task.Validate(); err != nil {
		return nil, err
	}

	err = s.runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.taskStore.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		s.logger.Error("failed to create task",
			"error", err,
			"creator_id", actorID)
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	newSnap := task.Snapshot()
	if err := s.applier.Apply(ctx, fanout.Evaluate(nil, &newSnap, actorID)); err != nil {
		return nil, fmt.Errorf("task created but fan-out failed: %w", err)
	}

	s.logger.Debug("task created", "task_id", task.ID, "creator_id", actorID)
	return task, nil
}

// GetByID retrieves a task by ID.
func (s *TaskServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Error("failed to retrieve task", "error", err, "task_id", id)
		}
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}
	return task, nil
}

// List returns tasks matching the filters.
func (s *TaskServiceImpl) List(ctx context.Context, filters store.TaskFilters) ([]*domain.Task, error) {
	tasks, err := s.taskStore.List(ctx, filters)
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update applies a partial update and fans out the resulting transition.
func (s *TaskServiceImpl) Update(
	ctx context.Context,
	actorID, id uuid.UUID,
	input UpdateTaskInput,
) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}

	if !isParticipant(task, actorID) {
		return nil, ErrNotTaskParticipant
	}

	oldSnap := task.Snapshot()

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.AssigneeSet {
		task.AssigneeID = input.AssigneeID
	}
	task.UpdatedAt = time.Now().UTC()

	if err := task.Validate(); err != nil {
		return nil, err
	}

	err = s.runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.taskStore.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Error("failed to update task", "error", err, "task_id", id)
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	newSnap := task.Snapshot()
	if err := s.applier.Apply(ctx, fanout.Evaluate(&oldSnap, &newSnap, actorID)); err != nil {
		return nil, fmt.Errorf("task updated but fan-out failed: %w", err)
	}

	s.logger.Debug("task updated", "task_id", id, "actor_id", actorID)
	return task, nil
}

// Delete removes a task and broadcasts its disappearance.
func (s *TaskServiceImpl) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to retrieve task: %w", err)
	}

	if task.CreatorID != actorID {
		return ErrNotTaskCreator
	}

	oldSnap := task.Snapshot()

	err = s.runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.taskStore.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Error("failed to delete task", "error", err, "task_id", id)
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if err := s.applier.Apply(ctx, fanout.Evaluate(&oldSnap, nil, actorID)); err != nil {
		return fmt.Errorf("task deleted but fan-out failed: %w", err)
	}

	s.logger.Debug("task deleted", "task_id", id, "actor_id", actorID)
	return nil
}

func isParticipant(task *domain.Task, userID uuid.UUID) bool {
	if task.CreatorID == userID {
		return true
	}
	return task.AssigneeID != nil && *task.AssigneeID == userID
}
