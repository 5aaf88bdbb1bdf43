package events_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDeliverer captures delivered envelopes for assertions.
type recordingDeliverer struct {
	toUser     map[uuid.UUID][]events.Envelope
	broadcasts []events.Envelope
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{toUser: make(map[uuid.UUID][]events.Envelope)}
}

func (d *recordingDeliverer) DeliverToUser(userID uuid.UUID, envelope events.Envelope) {
	d.toUser[userID] = append(d.toUser[userID], envelope)
}

func (d *recordingDeliverer) DeliverToAll(envelope events.Envelope) {
	d.broadcasts = append(d.broadcasts, envelope)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDispatcherToUser(t *testing.T) {
	deliverer := newRecordingDeliverer()
	dispatcher := events.NewDispatcher(deliverer, testLogger())

	userID := uuid.New()
	notification := &domain.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    domain.NotificationTaskAssigned,
		Message: "You have been assigned a new task: \"write docs\"",
	}

	before := time.Now()
	dispatcher.ToUser(userID, events.NotificationNew(notification))
	after := time.Now()

	require.Len(t, deliverer.toUser[userID], 1)
	got := deliverer.toUser[userID][0]
	assert.Equal(t, events.KindNotificationNew, got.Kind)
	assert.Equal(t, notification, got.Notification)

	// EmittedAt is stamped at emission time.
	assert.False(t, got.EmittedAt.Before(before.UTC().Add(-time.Second)))
	assert.False(t, got.EmittedAt.After(after.UTC().Add(time.Second)))
	assert.Empty(t, deliverer.broadcasts)
}

func TestDispatcherBroadcast(t *testing.T) {
	deliverer := newRecordingDeliverer()
	dispatcher := events.NewDispatcher(deliverer, testLogger())

	taskID := uuid.New()
	dispatcher.Broadcast(events.TaskDeleted(taskID))

	require.Len(t, deliverer.broadcasts, 1)
	got := deliverer.broadcasts[0]
	assert.Equal(t, events.KindTaskDeleted, got.Kind)
	require.NotNil(t, got.TaskID)
	assert.Equal(t, taskID, *got.TaskID)
	assert.False(t, got.EmittedAt.IsZero())
	assert.Empty(t, deliverer.toUser)
}

func TestEnvelopeConstructors(t *testing.T) {
	creatorID := uuid.New()
	oldAssignee := uuid.New()
	newAssignee := uuid.New()

	snapshot := domain.TaskSnapshot{
		ID:         uuid.New(),
		Title:      "ship release",
		Status:     domain.TaskStatusInProgress,
		CreatorID:  creatorID,
		AssigneeID: &newAssignee,
	}
	payload := events.NewTaskPayload(snapshot)

	t.Run("task payload mirrors snapshot", func(t *testing.T) {
		assert.Equal(t, snapshot.ID, payload.ID)
		assert.Equal(t, snapshot.Title, payload.Title)
		assert.Equal(t, snapshot.Status, payload.Status)
		assert.Equal(t, snapshot.CreatorID, payload.CreatorID)
		assert.Equal(t, snapshot.AssigneeID, payload.AssigneeID)
	})

	t.Run("reassigned carries both assignee ids", func(t *testing.T) {
		e := events.TaskReassigned(payload, &oldAssignee, newAssignee)
		assert.Equal(t, events.KindTaskReassigned, e.Kind)
		require.NotNil(t, e.OldAssigneeID)
		assert.Equal(t, oldAssignee, *e.OldAssigneeID)
		require.NotNil(t, e.NewAssigneeID)
		assert.Equal(t, newAssignee, *e.NewAssigneeID)
		assert.NotEmpty(t, e.Message)
	})

	t.Run("reassigned from unassigned has nil old id", func(t *testing.T) {
		e := events.TaskReassigned(payload, nil, newAssignee)
		assert.Nil(t, e.OldAssigneeID)
	})

	t.Run("directed kinds carry a message", func(t *testing.T) {
		assert.NotEmpty(t, events.TaskAssigned(payload).Message)
		assert.NotEmpty(t, events.TaskUnassigned(payload).Message)
	})

	t.Run("broadcast kinds carry no message", func(t *testing.T) {
		assert.Empty(t, events.TaskCreated(payload).Message)
		assert.Empty(t, events.TaskUpdated(payload).Message)
		assert.Empty(t, events.TaskDeleted(snapshot.ID).Message)
	})
}
