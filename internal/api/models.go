// Package api contains the HTTP handlers for the REST surface: auth, tasks,
// notifications, and users. Handlers stay thin; permission checks and
// fan-out live in the service layer.
package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
)

// RegisterRequest represents the payload for user registration.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents the payload for user login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest represents the payload for refreshing an access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse represents the response for successful authentication.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// RefreshTokenResponse represents the response for a token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// CreateTaskRequest represents the payload for creating a task.
type CreateTaskRequest struct {
	Title       string               `json:"title"       validate:"required,max=200"`
	Description string               `json:"description"`
	Priority    *domain.TaskPriority `json:"priority"    validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate     *time.Time           `json:"due_date"`
	AssigneeID  *uuid.UUID           `json:"assignee_id"`
}

// UpdateTaskRequest represents a partial task update. Absent fields are left
// unchanged. The assignee needs presence tracking because null is a valid
// value (it clears the assignment), so UnmarshalJSON records whether the key
// appeared at all.
type UpdateTaskRequest struct {
	Title       *string              `json:"title"       validate:"omitempty,max=200"`
	Description *string              `json:"description"`
	Status      *domain.TaskStatus   `json:"status"      validate:"omitempty,oneof=TODO IN_PROGRESS COMPLETED"`
	Priority    *domain.TaskPriority `json:"priority"    validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate     *time.Time           `json:"due_date"`
	AssigneeID  *uuid.UUID           `json:"assignee_id"`

	// AssigneeSet reports whether assignee_id was present in the payload.
	AssigneeSet bool `json:"-"`
}

// UnmarshalJSON decodes the update payload and records assignee_id presence.
func (r *UpdateTaskRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateTaskRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = UpdateTaskRequest(p)

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	_, r.AssigneeSet = keys["assignee_id"]
	return nil
}

// TaskResponse is the public representation of a task.
type TaskResponse struct {
	ID          uuid.UUID           `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TaskStatus   `json:"status"`
	Priority    domain.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date,omitempty"`
	CreatorID   uuid.UUID           `json:"creator_id"`
	AssigneeID  *uuid.UUID          `json:"assignee_id,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func newTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CreatorID:   task.CreatorID,
		AssigneeID:  task.AssigneeID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func newTaskListResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, newTaskResponse(task))
	}
	return out
}

// NotificationResponse is the public representation of a notification.
type NotificationResponse struct {
	ID        uuid.UUID               `json:"id"`
	Kind      domain.NotificationKind `json:"kind"`
	Message   string                  `json:"message"`
	TaskID    *uuid.UUID              `json:"task_id,omitempty"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}

func newNotificationListResponse(notifications []*domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Kind:      n.Kind,
			Message:   n.Message,
			TaskID:    n.TaskID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

// UnreadCountResponse carries the unread notification count.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
