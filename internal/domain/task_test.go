package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	creatorID := uuid.New()

	task, err := NewTask("Write release notes", "Cover the realtime changes", creatorID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if task.Title != "Write release notes" {
		t.Errorf("Expected title %q, got %q", "Write release notes", task.Title)
	}
	if task.Status != TaskStatusTodo {
		t.Errorf("Expected default status %s, got %s", TaskStatusTodo, task.Status)
	}
	if task.Priority != TaskPriorityMedium {
		t.Errorf("Expected default priority %s, got %s", TaskPriorityMedium, task.Priority)
	}
	if task.CreatorID != creatorID {
		t.Errorf("Expected creator ID %s, got %s", creatorID, task.CreatorID)
	}
	if task.AssigneeID != nil {
		t.Error("Expected new task to have no assignee")
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}

	// Empty title
	if _, err := NewTask("", "desc", creatorID); err != ErrEmptyTaskTitle {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskTitle, err)
	}

	// Whitespace-only title
	if _, err := NewTask("   ", "desc", creatorID); err != ErrEmptyTaskTitle {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskTitle, err)
	}

	// Overlong title
	if _, err := NewTask(strings.Repeat("x", 201), "desc", creatorID); err != ErrTaskTitleTooLong {
		t.Errorf("Expected error %v, got %v", ErrTaskTitleTooLong, err)
	}

	// Missing creator
	if _, err := NewTask("Valid title", "desc", uuid.Nil); err != ErrEmptyCreatorID {
		t.Errorf("Expected error %v, got %v", ErrEmptyCreatorID, err)
	}
}

func TestTaskValidate(t *testing.T) {
	valid := Task{
		ID:        uuid.New(),
		Title:     "Valid task",
		Status:    TaskStatusInProgress,
		Priority:  TaskPriorityHigh,
		CreatorID: uuid.New(),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid task to pass validation, got %v", err)
	}

	badStatus := valid
	badStatus.Status = TaskStatus("DONE")
	if err := badStatus.Validate(); err != ErrInvalidTaskStatus {
		t.Errorf("Expected error %v, got %v", ErrInvalidTaskStatus, err)
	}

	badPriority := valid
	badPriority.Priority = TaskPriority("URGENT")
	if err := badPriority.Validate(); err != ErrInvalidTaskPriority {
		t.Errorf("Expected error %v, got %v", ErrInvalidTaskPriority, err)
	}
}

func TestTaskStatusIsValid(t *testing.T) {
	for _, status := range []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted} {
		if !status.IsValid() {
			t.Errorf("Expected status %s to be valid", status)
		}
	}
	if TaskStatus("DONE").IsValid() {
		t.Error("Expected unknown status to be invalid")
	}
}

func TestTaskSnapshot(t *testing.T) {
	assigneeID := uuid.New()
	task, err := NewTask("Snapshot me", "", uuid.New())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	task.AssigneeID = &assigneeID

	snapshot := task.Snapshot()
	if snapshot.ID != task.ID {
		t.Errorf("Expected snapshot ID %s, got %s", task.ID, snapshot.ID)
	}
	if snapshot.AssigneeID == nil || *snapshot.AssigneeID != assigneeID {
		t.Errorf("Expected snapshot assignee %s, got %v", assigneeID, snapshot.AssigneeID)
	}

	// The snapshot must not alias the task's assignee pointer.
	other := uuid.New()
	task.AssigneeID = &other
	if *snapshot.AssigneeID != assigneeID {
		t.Error("Expected snapshot assignee to be unaffected by later task mutation")
	}

	got, ok := snapshot.Assignee()
	if !ok || got != assigneeID {
		t.Errorf("Expected Assignee() to return (%s, true), got (%s, %v)", assigneeID, got, ok)
	}

	task.AssigneeID = nil
	empty := task.Snapshot()
	if _, ok := empty.Assignee(); ok {
		t.Error("Expected Assignee() to report no assignee")
	}
}
