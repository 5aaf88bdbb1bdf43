// Package domain contains the core business entities of the application:
// users, tasks, and the notifications produced when tasks change hands.
// Entities validate themselves and carry no knowledge of persistence or
// transport.
package domain
