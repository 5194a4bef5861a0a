package commands

import (
	"context"
	"fmt"
	"time"

	"todobot/internal/intent"
	"todobot/internal/output"
	"todobot/internal/store"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd lists the user's tasks due between today and a given date.
type ListCmd struct{}

func (c *ListCmd) Kind() intent.Kind { return intent.KindListByDeadline }
func (c *ListCmd) Name() string      { return "list" }

func (c *ListCmd) Run(ctx context.Context, env *Env, in intent.Intent) (string, error) {
	list := in.(intent.ListByDeadline)

	until, err := time.Parse(DateLayout, list.UntilDate)
	if err != nil {
		return fmt.Sprintf("%q is not a valid date. Please use YYYY-MM-DD, e.g. 2025-06-15までのタスク", list.UntilDate), nil
	}

	rows, err := env.Store.Query(ctx, env.UserID)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}

	due := FilterDue(rows, env.UserID, env.Today, until)
	if len(due) == 0 {
		return "No tasks found in that range.", nil
	}
	return output.FormatDueTasks(due), nil
}

// FilterDue keeps rows owned by userID whose deadline falls within
// [today, until], both inclusive. Only the calendar dates of today and until
// are compared, so the time of day and location never shift the window.
// Rows whose deadline is not a valid date are skipped. Order is preserved.
func FilterDue(rows []store.Task, userID string, today, until time.Time) []store.Task {
	lo := today.Format(DateLayout)
	hi := until.Format(DateLayout)

	var due []store.Task
	for _, row := range rows {
		if row.UserID != userID {
			continue
		}
		d, err := time.Parse(DateLayout, row.Deadline)
		if err != nil {
			continue
		}
		// Zero-padded YYYY-MM-DD strings order the same way as the dates.
		day := d.Format(DateLayout)
		if day < lo || day > hi {
			continue
		}
		due = append(due, row)
	}
	return due
}
