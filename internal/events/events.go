// Package events defines the closed catalogue of outbound realtime event
// kinds and the dispatcher that routes them to connected clients.
//
// Every event crossing the wire is an Envelope with a fixed payload shape
// per kind. Constructing envelopes only through the typed constructors keeps
// the catalogue closed: a new kind requires a new constructor, not an
// ad-hoc map.
package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub/internal/domain"
)

// Kind identifies an outbound realtime event.
type Kind string

// The complete catalogue of outbound event kinds.
const (
	KindTaskCreated     Kind = "task:created"
	KindTaskUpdated     Kind = "task:updated"
	KindTaskDeleted     Kind = "task:deleted"
	KindTaskAssigned    Kind = "task:assigned"
	KindTaskReassigned  Kind = "task:reassigned"
	KindTaskUnassigned  Kind = "task:unassigned"
	KindNotificationNew Kind = "notification:new"
)

// IsTaskEvent reports whether the kind describes a task state change.
// Clients treat every task event the same way: invalidate and re-fetch.
func (k Kind) IsTaskEvent() bool {
	return strings.HasPrefix(string(k), "task:")
}

// TaskPayload is the task representation carried by task:* events.
// It mirrors the snapshot the fanout engine diffed, not the full task row:
// clients treat any task:* event as a cache-invalidation signal and re-fetch
// rather than merging the payload.
type TaskPayload struct {
	ID         uuid.UUID         `json:"id"`
	Title      string            `json:"title"`
	Status     domain.TaskStatus `json:"status"`
	CreatorID  uuid.UUID         `json:"creator_id"`
	AssigneeID *uuid.UUID        `json:"assignee_id,omitempty"`
}

// NewTaskPayload builds a TaskPayload from a task snapshot.
func NewTaskPayload(s domain.TaskSnapshot) *TaskPayload {
	return &TaskPayload{
		ID:         s.ID,
		Title:      s.Title,
		Status:     s.Status,
		CreatorID:  s.CreatorID,
		AssigneeID: s.AssigneeID,
	}
}

// Envelope is the wire shape of every outbound event. Exactly the fields
// appropriate for the Kind are set; the rest stay empty. EmittedAt is
// stamped by the dispatcher at emission time, not at construction.
type Envelope struct {
	Kind          Kind                 `json:"kind"`
	Message       string               `json:"message,omitempty"`
	Task          *TaskPayload         `json:"task,omitempty"`
	TaskID        *uuid.UUID           `json:"task_id,omitempty"`
	OldAssigneeID *uuid.UUID           `json:"old_assignee_id,omitempty"`
	NewAssigneeID *uuid.UUID           `json:"new_assignee_id,omitempty"`
	Notification  *domain.Notification `json:"notification,omitempty"`
	EmittedAt     time.Time            `json:"emitted_at"`
}

// TaskCreated builds a task:created envelope.
func TaskCreated(task *TaskPayload) Envelope {
	return Envelope{Kind: KindTaskCreated, Task: task}
}

// TaskUpdated builds a task:updated envelope.
func TaskUpdated(task *TaskPayload) Envelope {
	return Envelope{Kind: KindTaskUpdated, Task: task}
}

// TaskDeleted builds a task:deleted envelope.
func TaskDeleted(taskID uuid.UUID) Envelope {
	return Envelope{Kind: KindTaskDeleted, TaskID: &taskID}
}

// TaskAssigned builds a task:assigned envelope, directed at the new assignee.
func TaskAssigned(task *TaskPayload) Envelope {
	return Envelope{
		Kind:    KindTaskAssigned,
		Message: "You have been assigned a new task",
		Task:    task,
	}
}

// TaskReassigned builds a task:reassigned envelope, directed at the new
// assignee. It carries both assignee IDs so clients can tell which side of
// the handover they are on.
func TaskReassigned(task *TaskPayload, oldAssigneeID *uuid.UUID, newAssigneeID uuid.UUID) Envelope {
	return Envelope{
		Kind:          KindTaskReassigned,
		Message:       "You have been assigned a task",
		Task:          task,
		OldAssigneeID: oldAssigneeID,
		NewAssigneeID: &newAssigneeID,
	}
}

// TaskUnassigned builds a task:unassigned envelope, directed at the
// previous assignee.
func TaskUnassigned(task *TaskPayload) Envelope {
	return Envelope{
		Kind:    KindTaskUnassigned,
		Message: "A task has been unassigned from you",
		Task:    task,
	}
}

// NotificationNew builds a notification:new envelope carrying the persisted
// notification row.
func NotificationNew(notification *domain.Notification) Envelope {
	return Envelope{Kind: KindNotificationNew, Notification: notification}
}
