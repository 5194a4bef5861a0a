// Package store defines the backend-agnostic interface for task persistence.
package store

import "context"

// Task is one row of the task table.
type Task struct {
	UserID   string
	Name     string
	Deadline string // YYYY-MM-DD as typed by the user
}

// TaskStore defines the interface for task backend operations.
// All spreadsheet and database calls go through this interface.
// Commands never import a backend SDK directly.
type TaskStore interface {
	// Append adds one row at the end of the table.
	// Duplicate (UserID, Name) pairs are allowed.
	Append(ctx context.Context, task Task) error

	// Query returns every row in the table in insertion order.
	// Filtering by user is the caller's job.
	// Returns an empty slice when the table is empty.
	Query(ctx context.Context, userID string) ([]Task, error)

	// DeleteMatching removes every row whose UserID and Name equal the
	// arguments exactly and returns how many rows were removed.
	// Returns a KindNotFound error if the table itself cannot be resolved.
	DeleteMatching(ctx context.Context, userID, name string) (int, error)
}
