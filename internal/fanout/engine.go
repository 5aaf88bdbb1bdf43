// Package fanout turns a single task state transition into the set of
// notifications and realtime events it implies.
//
// The decision logic lives in Evaluate, a pure function over the before and
// after snapshots of a task and the acting user. It performs no I/O and
// allocates no IDs or timestamps, so identical inputs always produce an
// identical plan. The Applier then materializes the plan: durable
// notification rows first, best-effort event delivery alongside.
package fanout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
)

// NotificationDraft describes a durable notification to be written for a
// recipient. IDs and timestamps are assigned by the Applier at write time
// to keep the decision function pure.
type NotificationDraft struct {
	Kind    domain.NotificationKind
	Message string
	TaskID  uuid.UUID
}

// Intent targets exactly one recipient with an optional durable
// notification and an optional directed event. Either field may be nil but
// never both: a reassignment's previous assignee, for example, receives a
// transient task:unassigned event with no persisted row.
type Intent struct {
	Recipient    uuid.UUID
	Notification *NotificationDraft
	Event        *events.Envelope
}

// Plan is the complete outcome of one task transition: personally-addressed
// intents in rule order, followed by the broadcasts every client receives.
type Plan struct {
	Intents    []Intent
	Broadcasts []events.Envelope
}

// Evaluate derives the fan-out plan for a task transition.
//
// A nil oldSnap means the task was created; a nil newSnap means it was
// deleted; both non-nil means it was updated. Rules fire independently and
// their outputs are unioned, so one mutation may produce several intents
// (e.g. a reassignment that also completes the task).
//
// The acting user is never a recipient: any notification or directed event
// that would target actorID is suppressed, uniformly across all rules.
func Evaluate(oldSnap, newSnap *domain.TaskSnapshot, actorID uuid.UUID) Plan {
	var plan Plan

	switch {
	case oldSnap == nil && newSnap != nil:
		plan = evaluateCreation(*newSnap, actorID)
	case oldSnap != nil && newSnap != nil:
		plan = evaluateUpdate(*oldSnap, *newSnap, actorID)
	case oldSnap != nil && newSnap == nil:
		plan.Broadcasts = append(plan.Broadcasts, events.TaskDeleted(oldSnap.ID))
	}

	return plan
}

// evaluateCreation handles a newly created task: notify the assignee if one
// was set at creation, and tell every client a task appeared.
func evaluateCreation(newSnap domain.TaskSnapshot, actorID uuid.UUID) Plan {
	var plan Plan
	payload := events.NewTaskPayload(newSnap)

	if assignee, ok := newSnap.Assignee(); ok && assignee != newSnap.CreatorID && assignee != actorID {
		event := events.TaskAssigned(payload)
		plan.Intents = append(plan.Intents, Intent{
			Recipient: assignee,
			Notification: &NotificationDraft{
				Kind:    domain.NotificationTaskAssigned,
				Message: fmt.Sprintf("You have been assigned a new task: %q", newSnap.Title),
				TaskID:  newSnap.ID,
			},
			Event: &event,
		})
	}

	plan.Broadcasts = append(plan.Broadcasts, events.TaskCreated(payload))
	return plan
}

// evaluateUpdate handles an update to an existing task. The assignment rule
// and the completion rule fire independently and may both contribute.
func evaluateUpdate(oldSnap, newSnap domain.TaskSnapshot, actorID uuid.UUID) Plan {
	var plan Plan
	payload := events.NewTaskPayload(newSnap)

	oldAssignee, hadAssignee := oldSnap.Assignee()
	newAssignee, hasAssignee := newSnap.Assignee()
	assigneeChanged := (hadAssignee != hasAssignee) || (hadAssignee && oldAssignee != newAssignee)

	switch {
	case assigneeChanged && hasAssignee:
		// Reassignment. The previous assignee (if any) gets a transient
		// "unassigned" event but no durable row; the new assignee gets a
		// durable ASSIGNED notification plus the reassignment event carrying
		// both IDs.
		if hadAssignee && oldAssignee != actorID {
			event := events.TaskUnassigned(payload)
			plan.Intents = append(plan.Intents, Intent{
				Recipient: oldAssignee,
				Event:     &event,
			})
		}

		if newAssignee != actorID {
			var oldID *uuid.UUID
			if hadAssignee {
				oldID = &oldAssignee
			}
			event := events.TaskReassigned(payload, oldID, newAssignee)
			plan.Intents = append(plan.Intents, Intent{
				Recipient: newAssignee,
				Notification: &NotificationDraft{
					Kind:    domain.NotificationTaskAssigned,
					Message: fmt.Sprintf("You have been assigned to task: %q", newSnap.Title),
					TaskID:  newSnap.ID,
				},
				Event: &event,
			})
		}

	case assigneeChanged && hadAssignee:
		// Assignee cleared: the previous assignee gets a durable UNASSIGNED
		// notification alongside the transient event.
		if oldAssignee != actorID {
			event := events.TaskUnassigned(payload)
			plan.Intents = append(plan.Intents, Intent{
				Recipient: oldAssignee,
				Notification: &NotificationDraft{
					Kind:    domain.NotificationTaskUnassigned,
					Message: fmt.Sprintf("You have been unassigned from task: %q", newSnap.Title),
					TaskID:  newSnap.ID,
				},
				Event: &event,
			})
		}
	}

	// Completion fires independently of the assignment rules.
	if newSnap.Status == domain.TaskStatusCompleted && oldSnap.Status != domain.TaskStatusCompleted {
		if newSnap.CreatorID != actorID {
			plan.Intents = append(plan.Intents, Intent{
				Recipient: newSnap.CreatorID,
				Notification: &NotificationDraft{
					Kind:    domain.NotificationTaskCompleted,
					Message: fmt.Sprintf("Task completed: %q", newSnap.Title),
					TaskID:  newSnap.ID,
				},
			})
		}
	}

	// Every update, assignment-related or not, invalidates task caches
	// everywhere.
	plan.Broadcasts = append(plan.Broadcasts, events.TaskUpdated(payload))
	return plan
}
