package fanout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// Applier materializes a Plan: it writes durable notification rows and
// pushes realtime events through the dispatcher.
//
// The two halves have different failure semantics. A notification row that
// cannot be written is an error surfaced to the caller, because the row is
// the durable record a disconnected user catches up from. Event delivery is
// best-effort and never fails the mutation that triggered it.
type Applier struct {
	notifications store.NotificationStore
	dispatcher    *events.Dispatcher
	logger        *slog.Logger
}

// NewApplier creates an Applier writing rows through the given store and
// delivering events through the given dispatcher.
func NewApplier(notifications store.NotificationStore, dispatcher *events.Dispatcher, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{
		notifications: notifications,
		dispatcher:    dispatcher,
		logger:        log.With("component", "fanout_applier"),
	}
}

// Apply executes the plan in order: each intent's row write and directed
// events, then the broadcasts.
//
// Row writes are attempted sequentially and independently; the first failure
// is remembered and returned after the remaining intents and all broadcasts
// have been applied, so a storage fault for one recipient never silences the
// others. A recipient whose row write failed does not receive the
// notification:new push (there is no row to carry), but still receives the
// intent's directed event.
func (a *Applier) Apply(ctx context.Context, plan Plan) error {
	log := logger.FromContextOrDefault(ctx, a.logger)

	var firstErr error
	for _, intent := range plan.Intents {
		if intent.Notification != nil {
			draft := intent.Notification
			taskID := draft.TaskID
			notification, err := domain.NewNotification(intent.Recipient, draft.Kind, draft.Message, &taskID)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("building %s notification for user %s: %w", draft.Kind, intent.Recipient, err)
				}
				continue
			}

			if err := a.notifications.Create(ctx, notification); err != nil {
				log.Error("failed to persist notification",
					"error", err,
					"user_id", intent.Recipient,
					"kind", draft.Kind,
					"task_id", taskID)
				if firstErr == nil {
					firstErr = fmt.Errorf("persisting %s notification for user %s: %w", draft.Kind, intent.Recipient, err)
				}
			} else {
				a.dispatcher.ToUser(intent.Recipient, events.NotificationNew(notification))
			}
		}

		if intent.Event != nil {
			a.dispatcher.ToUser(intent.Recipient, *intent.Event)
		}
	}

	for _, envelope := range plan.Broadcasts {
		a.dispatcher.Broadcast(envelope)
	}

	return firstErr
}
