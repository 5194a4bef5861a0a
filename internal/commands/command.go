// Package commands provides the command interface and one implementation per
// chat intent.
package commands

import (
	"context"
	"time"

	"todobot/internal/intent"
	"todobot/internal/store"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// Env carries per-event inputs. It is built fresh for every event and never
// shared between events.
type Env struct {
	// Store is the task table.
	Store store.TaskStore

	// UserID identifies the requester. Never empty.
	UserID string

	// Today is the current calendar date in the bot's time zone.
	Today time.Time
}

// Command defines the interface for chat commands.
type Command interface {
	// Kind returns the intent this command handles.
	Kind() intent.Kind

	// Name returns a short name for logs and metrics.
	Name() string

	// Run executes the command and returns the reply text.
	// in is guaranteed to have Kind() == c.Kind().
	// Store failures are returned as errors; the caller decides the reply.
	Run(ctx context.Context, env *Env, in intent.Intent) (string, error)
}
