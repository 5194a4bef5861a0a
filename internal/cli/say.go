package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"todobot/internal/bot"
)

func newSayCmd(opts Options, flags *globalFlags) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "say <message>",
		Short: "Send one chat message to the bot and print the reply",
		Long: `Send one chat message through the bot against the configured store and
print the reply, without going through LINE.

Examples:
  todobot say "Submit report 2025-06-02"
  todobot say "2025-06-15までのタスク"
  todobot say --user U123 "Submit report completed"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return errors.New("--user must not be empty")
			}
			cfg, err := loadConfig(opts, flags)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, opts.Err)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			// Replies are printed directly; nothing is sent.
			noReply := bot.ReplierFunc(func(ctx context.Context, token, text string) error { return nil })
			router := a.router(cfg, noReply, nil, opts.Now)

			reply := router.Respond(cmd.Context(), userID, strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "local", "user id to act as")
	return cmd
}
