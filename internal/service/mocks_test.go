package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/fanout"
	"github.com/phrazzld/taskhub/internal/service/auth"
	"github.com/phrazzld/taskhub/internal/store"
)

// passthroughTx skips real transaction handling so mutation paths can run
// against in-memory fakes.
func passthroughTx(ctx context.Context, _ *sql.DB, fn store.TxFn) error {
	return fn(ctx, nil)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTaskStore is an in-memory TaskStore.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

var _ store.TaskStore = (*fakeTaskStore)(nil)

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *fakeTaskStore) List(_ context.Context, _ store.TaskFilters) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tasks []*domain.Task
	for _, task := range s.tasks {
		copied := *task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func (s *fakeTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

// fakeNotificationStore records created notifications.
type fakeNotificationStore struct {
	mu      sync.Mutex
	created []*domain.Notification
}

var _ store.NotificationStore = (*fakeNotificationStore)(nil)

func (s *fakeNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, n)
	return nil
}

func (s *fakeNotificationStore) ListByUser(_ context.Context, userID uuid.UUID, _ int) ([]*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Notification
	for _, n := range s.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.created {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *fakeNotificationStore) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (s *fakeNotificationStore) MarkAllRead(context.Context, uuid.UUID) error { return nil }

func (s *fakeNotificationStore) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (s *fakeNotificationStore) WithTx(_ *sql.Tx) store.NotificationStore { return s }

// fakeUserStore is an in-memory UserStore with bcrypt hashing at minimum
// cost to keep login tests fast.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

var _ store.UserStore = (*fakeUserStore)(nil)

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	user.HashedPassword = string(hashed)
	user.Password = ""
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) List(_ context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []*domain.User
	for _, user := range s.users {
		copied := *user
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (s *fakeUserStore) WithTx(_ *sql.Tx) store.UserStore { return s }

// recordingDeliverer captures dispatched events.
type recordingDeliverer struct {
	mu        sync.Mutex
	directed  map[uuid.UUID][]events.Envelope
	broadcast []events.Envelope
}

var _ events.Deliverer = (*recordingDeliverer)(nil)

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{directed: make(map[uuid.UUID][]events.Envelope)}
}

func (d *recordingDeliverer) DeliverToUser(userID uuid.UUID, envelope events.Envelope) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.directed[userID] = append(d.directed[userID], envelope)
}

func (d *recordingDeliverer) DeliverToAll(envelope events.Envelope) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcast = append(d.broadcast, envelope)
}

// stubJWTService issues predictable tokens keyed by user ID.
type stubJWTService struct {
	failGenerate bool
}

var _ auth.JWTService = (*stubJWTService)(nil)

func (s *stubJWTService) GenerateToken(_ context.Context, userID uuid.UUID) (string, error) {
	if s.failGenerate {
		return "", fmt.Errorf("signing failed")
	}
	return "access-" + userID.String(), nil
}

func (s *stubJWTService) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	return parseStubToken(token, "access-")
}

func (s *stubJWTService) GenerateRefreshToken(_ context.Context, userID uuid.UUID) (string, error) {
	if s.failGenerate {
		return "", fmt.Errorf("signing failed")
	}
	return "refresh-" + userID.String(), nil
}

func (s *stubJWTService) ValidateRefreshToken(_ context.Context, token string) (*auth.Claims, error) {
	return parseStubToken(token, "refresh-")
}

func parseStubToken(token, prefix string) (*auth.Claims, error) {
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return nil, auth.ErrInvalidToken
	}
	userID, err := uuid.Parse(token[len(prefix):])
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: userID}, nil
}

// newTestTaskService wires a TaskService against in-memory fakes with a real
// fan-out pipeline so tests observe end-to-end mutation effects.
func newTestTaskService() (*TaskServiceImpl, *fakeTaskStore, *fakeNotificationStore, *recordingDeliverer) {
	taskStore := newFakeTaskStore()
	notifications := &fakeNotificationStore{}
	deliverer := newRecordingDeliverer()
	dispatcher := events.NewDispatcher(deliverer, testLogger())
	applier := fanout.NewApplier(notifications, dispatcher, testLogger())

	svc := NewTaskService(nil, taskStore, applier, testLogger())
	svc.runInTx = passthroughTx
	return svc, taskStore, notifications, deliverer
}
