package bot

import (
	"errors"

	"todobot/internal/store"
	"todobot/internal/userlock"
)

// Replies sent when a command could not finish.
const (
	ApologyTableMissing = "Sorry, the task sheet could not be found. Please ask the bot owner to check the configuration."
	ApologyRetry        = "Sorry, the task store is busy right now. Please try again in a moment."
	ApologyGeneric      = "Sorry, something went wrong. Please try again later."
)

// apologyFor maps a command failure to the text the user sees.
func apologyFor(err error) string {
	if errors.Is(err, userlock.ErrLockTimeout) {
		return ApologyRetry
	}
	switch kind := store.KindOf(err); {
	case kind == store.KindNotFound:
		return ApologyTableMissing
	case kind.Retryable():
		return ApologyRetry
	default:
		return ApologyGeneric
	}
}
