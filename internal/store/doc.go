// Package store defines the persistence interfaces for users, tasks, and
// notifications, plus the transaction helper that lets services compose
// multiple store calls atomically. Implementations live under
// internal/platform; business logic depends only on these interfaces.
package store
