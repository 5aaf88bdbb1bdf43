package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/store"
)

// stubTaskService returns canned values and records the inputs it saw.
type stubTaskService struct {
	task      *domain.Task
	tasks     []*domain.Task
	err       error
	lastInput service.UpdateTaskInput
}

var _ service.TaskService = (*stubTaskService)(nil)

func (s *stubTaskService) Create(_ context.Context, actorID uuid.UUID, input service.CreateTaskInput) (*domain.Task, error) {
	return s.task, s.err
}

func (s *stubTaskService) GetByID(context.Context, uuid.UUID) (*domain.Task, error) {
	return s.task, s.err
}

func (s *stubTaskService) List(context.Context, store.TaskFilters) ([]*domain.Task, error) {
	return s.tasks, s.err
}

func (s *stubTaskService) Update(_ context.Context, _, _ uuid.UUID, input service.UpdateTaskInput) (*domain.Task, error) {
	s.lastInput = input
	return s.task, s.err
}

func (s *stubTaskService) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return s.err
}

// stubNotificationService returns canned values.
type stubNotificationService struct {
	notifications []*domain.Notification
	count         int
	err           error
}

var _ service.NotificationService = (*stubNotificationService)(nil)

func (s *stubNotificationService) List(context.Context, uuid.UUID, int) ([]*domain.Notification, error) {
	return s.notifications, s.err
}

func (s *stubNotificationService) UnreadCount(context.Context, uuid.UUID) (int, error) {
	return s.count, s.err
}

func (s *stubNotificationService) MarkRead(context.Context, uuid.UUID, uuid.UUID) error {
	return s.err
}

func (s *stubNotificationService) MarkAllRead(context.Context, uuid.UUID) error {
	return s.err
}

func (s *stubNotificationService) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return s.err
}

// stubUserService returns canned values.
type stubUserService struct {
	user   *domain.User
	users  []*domain.User
	tokens *service.TokenPair
	err    error
}

var _ service.UserService = (*stubUserService)(nil)

func (s *stubUserService) Register(context.Context, string, string, string) (*domain.User, *service.TokenPair, error) {
	return s.user, s.tokens, s.err
}

func (s *stubUserService) Login(context.Context, string, string) (*domain.User, *service.TokenPair, error) {
	return s.user, s.tokens, s.err
}

func (s *stubUserService) Refresh(context.Context, string) (*service.TokenPair, error) {
	return s.tokens, s.err
}

func (s *stubUserService) GetUser(context.Context, uuid.UUID) (*domain.User, error) {
	return s.user, s.err
}

func (s *stubUserService) ListUsers(context.Context) ([]*domain.User, error) {
	return s.users, s.err
}

// doRequest runs an authenticated request through a chi router so URL
// params resolve the way they do in production.
func doRequest(t *testing.T, router chi.Router, method, target, body string, userID *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, target, reader)
	if userID != nil {
		ctx := context.WithValue(req.Context(), shared.UserIDContextKey, *userID)
		req = req.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func testTask(creatorID uuid.UUID) *domain.Task {
	task, err := domain.NewTask("Sample task", "", creatorID)
	if err != nil {
		panic(err)
	}
	return task
}

func testUser() *domain.User {
	user, err := domain.NewUser("Alice", "alice@example.com", "correct horse battery")
	if err != nil {
		panic(err)
	}
	return user
}
