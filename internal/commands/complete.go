package commands

import (
	"context"
	"fmt"

	"todobot/internal/intent"
)

func init() {
	Register(&CompleteCmd{})
}

// CompleteCmd removes every row matching the user and task name.
// Completion is represented by deletion; there is no status column.
type CompleteCmd struct{}

func (c *CompleteCmd) Kind() intent.Kind { return intent.KindCompleteTask }
func (c *CompleteCmd) Name() string      { return "complete" }

func (c *CompleteCmd) Run(ctx context.Context, env *Env, in intent.Intent) (string, error) {
	done := in.(intent.CompleteTask)

	n, err := env.Store.DeleteMatching(ctx, env.UserID, done.Name)
	if err != nil {
		return "", fmt.Errorf("complete task: %w", err)
	}

	if n == 0 {
		return fmt.Sprintf("No task named «%s» was found.", done.Name), nil
	}
	return fmt.Sprintf("Deleted task «%s» from the store (%d rows).", done.Name, n), nil
}
