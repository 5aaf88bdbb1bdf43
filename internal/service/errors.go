// Package service provides application-level services for managing tasks,
// notifications, and users. Services own the permission checks, transaction
// boundaries, and the fan-out that follows every task mutation.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrNotTaskParticipant indicates the acting user is neither the creator
	// nor the assignee of the task they tried to modify.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotTaskParticipant = errors.New("only the task creator or assignee may modify it")

	// ErrNotTaskCreator indicates the acting user tried to delete a task
	// they did not create.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotTaskCreator = errors.New("only the task creator may delete it")

	// ErrInvalidCredentials indicates a login attempt with an unknown email
	// or a wrong password. The two cases are deliberately indistinguishable.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
