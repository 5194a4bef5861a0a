package commands

import (
	"context"
	"fmt"

	"todobot/internal/intent"
	"todobot/internal/store"
)

func init() {
	Register(&AddCmd{})
	Register(&MalformedCmd{})
}

// AddCmd appends one task row.
type AddCmd struct{}

func (c *AddCmd) Kind() intent.Kind { return intent.KindAddTask }
func (c *AddCmd) Name() string      { return "add" }

func (c *AddCmd) Run(ctx context.Context, env *Env, in intent.Intent) (string, error) {
	add := in.(intent.AddTask)

	task := store.Task{
		UserID:   env.UserID,
		Name:     add.Name,
		Deadline: add.Deadline,
	}
	if err := env.Store.Append(ctx, task); err != nil {
		return "", fmt.Errorf("add task: %w", err)
	}

	return fmt.Sprintf("Added task «%s» (due: %s).", add.Name, add.Deadline), nil
}

// MalformedCmd re-prompts with the expected "name date" grammar.
// This is a conversational reply, not an error.
type MalformedCmd struct{}

func (c *MalformedCmd) Kind() intent.Kind { return intent.KindMalformed }
func (c *MalformedCmd) Name() string      { return "malformed" }

func (c *MalformedCmd) Run(ctx context.Context, env *Env, in intent.Intent) (string, error) {
	return FormatHint, nil
}

// FormatHint shows the add-task grammar with one example.
const FormatHint = `Please send a task as "name date".
e.g. Submit report 2025-06-02
Send "how to use" for all commands.`
