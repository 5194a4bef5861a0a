package commands

import (
	"context"

	"todobot/internal/intent"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd replies with the usage guide. It never touches the store.
type HelpCmd struct{}

func (c *HelpCmd) Kind() intent.Kind { return intent.KindHelp }
func (c *HelpCmd) Name() string      { return "help" }

func (c *HelpCmd) Run(ctx context.Context, env *Env, in intent.Intent) (string, error) {
	return HelpText, nil
}

// HelpText is the usage guide.
const HelpText = `How to use:
・Add a task: <name> <YYYY-MM-DD>
  e.g. Submit report 2025-06-02
・List tasks due by a date: <YYYY-MM-DD>までのタスク
  e.g. 2025-06-15までのタスク (or: 2025-06-15 tasks)
・Complete a task: <name> completed, or <name>完了
  e.g. Submit report completed
・Show this guide: 使い方, or how to use`

// WelcomeText is sent when a user adds the bot.
const WelcomeText = "Thanks for adding me! I keep your to-do list.\n\n" + HelpText
