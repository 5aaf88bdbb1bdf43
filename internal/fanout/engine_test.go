package fanout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
)

func snapshot(id, creatorID uuid.UUID, assigneeID *uuid.UUID, status domain.TaskStatus, title string) *domain.TaskSnapshot {
	return &domain.TaskSnapshot{
		ID:         id,
		Title:      title,
		Status:     status,
		CreatorID:  creatorID,
		AssigneeID: assigneeID,
	}
}

func TestEvaluate_Creation(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	creator := uuid.New()
	assignee := uuid.New()

	t.Run("assigned to someone else notifies the assignee", func(t *testing.T) {
		t.Parallel()

		newSnap := snapshot(taskID, creator, &assignee, domain.TaskStatusTodo, "Write release notes")
		plan := Evaluate(nil, newSnap, creator)

		require.Len(t, plan.Intents, 1)
		intent := plan.Intents[0]
		assert.Equal(t, assignee, intent.Recipient)

		require.NotNil(t, intent.Notification)
		assert.Equal(t, domain.NotificationTaskAssigned, intent.Notification.Kind)
		assert.Equal(t, `You have been assigned a new task: "Write release notes"`, intent.Notification.Message)
		assert.Equal(t, taskID, intent.Notification.TaskID)

		require.NotNil(t, intent.Event)
		assert.Equal(t, events.KindTaskAssigned, intent.Event.Kind)

		require.Len(t, plan.Broadcasts, 1)
		assert.Equal(t, events.KindTaskCreated, plan.Broadcasts[0].Kind)
	})

	t.Run("unassigned task only broadcasts", func(t *testing.T) {
		t.Parallel()

		newSnap := snapshot(taskID, creator, nil, domain.TaskStatusTodo, "Triage inbox")
		plan := Evaluate(nil, newSnap, creator)

		assert.Empty(t, plan.Intents)
		require.Len(t, plan.Broadcasts, 1)
		assert.Equal(t, events.KindTaskCreated, plan.Broadcasts[0].Kind)
	})

	t.Run("creator assigning themselves is not notified", func(t *testing.T) {
		t.Parallel()

		newSnap := snapshot(taskID, creator, &creator, domain.TaskStatusTodo, "Self-assigned chore")
		plan := Evaluate(nil, newSnap, creator)

		assert.Empty(t, plan.Intents)
		require.Len(t, plan.Broadcasts, 1)
	})

	t.Run("actor assigning themselves to a task they did not create is not notified", func(t *testing.T) {
		t.Parallel()

		actor := uuid.New()
		newSnap := snapshot(taskID, creator, &actor, domain.TaskStatusTodo, "Picked up at creation")
		plan := Evaluate(nil, newSnap, actor)

		assert.Empty(t, plan.Intents)
		require.Len(t, plan.Broadcasts, 1)
	})
}

func TestEvaluate_Reassignment(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	creator := uuid.New()
	previous := uuid.New()
	next := uuid.New()
	actor := uuid.New()

	t.Run("new assignee gets a row, previous only an event", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, &previous, domain.TaskStatusInProgress, "Rotate credentials")
		newSnap := snapshot(taskID, creator, &next, domain.TaskStatusInProgress, "Rotate credentials")
		plan := Evaluate(oldSnap, newSnap, actor)

		require.Len(t, plan.Intents, 2)

		unassigned := plan.Intents[0]
		assert.Equal(t, previous, unassigned.Recipient)
		assert.Nil(t, unassigned.Notification, "previous assignee must not get a durable row on reassignment")
		require.NotNil(t, unassigned.Event)
		assert.Equal(t, events.KindTaskUnassigned, unassigned.Event.Kind)

		assigned := plan.Intents[1]
		assert.Equal(t, next, assigned.Recipient)
		require.NotNil(t, assigned.Notification)
		assert.Equal(t, domain.NotificationTaskAssigned, assigned.Notification.Kind)
		assert.Equal(t, `You have been assigned to task: "Rotate credentials"`, assigned.Notification.Message)
		require.NotNil(t, assigned.Event)
		assert.Equal(t, events.KindTaskReassigned, assigned.Event.Kind)
		require.NotNil(t, assigned.Event.OldAssigneeID)
		assert.Equal(t, previous, *assigned.Event.OldAssigneeID)
		require.NotNil(t, assigned.Event.NewAssigneeID)
		assert.Equal(t, next, *assigned.Event.NewAssigneeID)

		require.Len(t, plan.Broadcasts, 1)
		assert.Equal(t, events.KindTaskUpdated, plan.Broadcasts[0].Kind)
	})

	t.Run("first assignment has no previous assignee leg", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, nil, domain.TaskStatusTodo, "Untriaged bug")
		newSnap := snapshot(taskID, creator, &next, domain.TaskStatusTodo, "Untriaged bug")
		plan := Evaluate(oldSnap, newSnap, actor)

		require.Len(t, plan.Intents, 1)
		assert.Equal(t, next, plan.Intents[0].Recipient)
		require.NotNil(t, plan.Intents[0].Event)
		assert.Nil(t, plan.Intents[0].Event.OldAssigneeID)
	})

	t.Run("actor taking the task themselves suppresses their own leg", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, &previous, domain.TaskStatusTodo, "Grabbed")
		newSnap := snapshot(taskID, creator, &actor, domain.TaskStatusTodo, "Grabbed")
		plan := Evaluate(oldSnap, newSnap, actor)

		require.Len(t, plan.Intents, 1)
		assert.Equal(t, previous, plan.Intents[0].Recipient)
		assert.Nil(t, plan.Intents[0].Notification)
	})

	t.Run("actor handing off their own task suppresses the unassigned leg", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, &actor, domain.TaskStatusTodo, "Handed off")
		newSnap := snapshot(taskID, creator, &next, domain.TaskStatusTodo, "Handed off")
		plan := Evaluate(oldSnap, newSnap, actor)

		require.Len(t, plan.Intents, 1)
		assert.Equal(t, next, plan.Intents[0].Recipient)
		require.NotNil(t, plan.Intents[0].Notification)
	})

	t.Run("unchanged assignee produces no assignment intents", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, &previous, domain.TaskStatusTodo, "Retitled")
		newSnap := snapshot(taskID, creator, &previous, domain.TaskStatusTodo, "Retitled again")
		plan := Evaluate(oldSnap, newSnap, actor)

		assert.Empty(t, plan.Intents)
		require.Len(t, plan.Broadcasts, 1)
		assert.Equal(t, events.KindTaskUpdated, plan.Broadcasts[0].Kind)
	})
}

func TestEvaluate_Unassignment(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	creator := uuid.New()
	previous := uuid.New()
	actor := uuid.New()

	t.Run("clearing the assignee notifies them durably", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, &previous, domain.TaskStatusInProgress, "Parked work")
		newSnap := snapshot(taskID, creator, nil, domain.TaskStatusInProgress, "Parked work")
		plan := Evaluate(oldSnap, newSnap, actor)

		require.Len(t, plan.Intents, 1)
		intent := plan.Intents[0]
		assert.Equal(t, previous, intent.Recipient)
		require.NotNil(t, intent.Notification)
		assert.Equal(t, domain.NotificationTaskUnassigned, intent.Notification.Kind)
		assert.Equal(t, `You have been unassigned from task: "Parked work"`, intent.Notification.Message)
		require.NotNil(t, intent.Event)
		assert.Equal(t, events.KindTaskUnassigned, intent.Event.Kind)
	})

	t.Run("assignee dropping their own task gets nothing", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, &actor, domain.TaskStatusTodo, "Dropped")
		newSnap := snapshot(taskID, creator, nil, domain.TaskStatusTodo, "Dropped")
		plan := Evaluate(oldSnap, newSnap, actor)

		assert.Empty(t, plan.Intents)
		require.Len(t, plan.Broadcasts, 1)
	})
}

func TestEvaluate_Completion(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	creator := uuid.New()
	assignee := uuid.New()

	t.Run("assignee completing notifies the creator", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, &assignee, domain.TaskStatusInProgress, "Ship it")
		newSnap := snapshot(taskID, creator, &assignee, domain.TaskStatusCompleted, "Ship it")
		plan := Evaluate(oldSnap, newSnap, assignee)

		require.Len(t, plan.Intents, 1)
		intent := plan.Intents[0]
		assert.Equal(t, creator, intent.Recipient)
		require.NotNil(t, intent.Notification)
		assert.Equal(t, domain.NotificationTaskCompleted, intent.Notification.Kind)
		assert.Equal(t, `Task completed: "Ship it"`, intent.Notification.Message)
		assert.Nil(t, intent.Event, "completion rides on notification:new alone")
	})

	t.Run("creator completing their own task is not notified", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, &assignee, domain.TaskStatusInProgress, "Done myself")
		newSnap := snapshot(taskID, creator, &assignee, domain.TaskStatusCompleted, "Done myself")
		plan := Evaluate(oldSnap, newSnap, creator)

		assert.Empty(t, plan.Intents)
	})

	t.Run("already completed task does not re-fire", func(t *testing.T) {
		t.Parallel()

		oldSnap := snapshot(taskID, creator, &assignee, domain.TaskStatusCompleted, "Still done")
		newSnap := snapshot(taskID, creator, &assignee, domain.TaskStatusCompleted, "Still done, retitled")
		plan := Evaluate(oldSnap, newSnap, assignee)

		assert.Empty(t, plan.Intents)
	})

	t.Run("completing and handing off in one update fires both rules", func(t *testing.T) {
		t.Parallel()

		next := uuid.New()
		oldSnap := snapshot(taskID, creator, &assignee, domain.TaskStatusInProgress, "Combined")
		newSnap := snapshot(taskID, creator, &next, domain.TaskStatusCompleted, "Combined")
		plan := Evaluate(oldSnap, newSnap, assignee)

		require.Len(t, plan.Intents, 2)
		assert.Equal(t, next, plan.Intents[0].Recipient)
		assert.Equal(t, domain.NotificationTaskAssigned, plan.Intents[0].Notification.Kind)
		assert.Equal(t, creator, plan.Intents[1].Recipient)
		assert.Equal(t, domain.NotificationTaskCompleted, plan.Intents[1].Notification.Kind)
	})
}

func TestEvaluate_Deletion(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	creator := uuid.New()
	assignee := uuid.New()

	oldSnap := snapshot(taskID, creator, &assignee, domain.TaskStatusTodo, "Removed")
	plan := Evaluate(oldSnap, nil, creator)

	assert.Empty(t, plan.Intents, "deletion notifies nobody")
	require.Len(t, plan.Broadcasts, 1)
	assert.Equal(t, events.KindTaskDeleted, plan.Broadcasts[0].Kind)
	require.NotNil(t, plan.Broadcasts[0].TaskID)
	assert.Equal(t, taskID, *plan.Broadcasts[0].TaskID)
}

func TestEvaluate_Deterministic(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	creator := uuid.New()
	previous := uuid.New()
	next := uuid.New()
	actor := uuid.New()

	oldSnap := snapshot(taskID, creator, &previous, domain.TaskStatusInProgress, "Stable")
	newSnap := snapshot(taskID, creator, &next, domain.TaskStatusCompleted, "Stable")

	first := Evaluate(oldSnap, newSnap, actor)
	second := Evaluate(oldSnap, newSnap, actor)

	assert.Equal(t, first, second)
}
