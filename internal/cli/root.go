// Package cli implements the todobot command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"todobot/internal/config"
	"todobot/internal/exitcode"
)

// Options carries process-level inputs so commands can be run in tests.
type Options struct {
	Version string
	Out     io.Writer
	Err     io.Writer

	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	// Now defaults to time.Now.
	Now func() time.Time
}

// codeError attaches an exit code to an error.
type codeError struct {
	code int
	err  error
}

func (e *codeError) Error() string { return e.err.Error() }
func (e *codeError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codeError{code: code, err: err}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	quiet      bool
	debug      bool
}

// NewRootCmd builds the command tree.
func NewRootCmd(opts Options) *cobra.Command {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "todobot",
		Short: "A chat bot that keeps a to-do list in a spreadsheet",
		Long: `todobot answers LINE messages and stores each user's tasks in a
Google Sheets tab (or a local SQLite file).

Chat commands:
  <name> <YYYY-MM-DD>          add a task
  <YYYY-MM-DD>までのタスク      list tasks due from today to that date
  <name> completed / <name>完了  delete the task
  how to use / 使い方           show the guide`,
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.SetVersionTemplate(`{{printf "todobot %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (.toml or .yaml); default $XDG_CONFIG_HOME/todobot/config.toml")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress informational output")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(opts, flags),
		newSayCmd(opts, flags),
		newLoginCmd(opts, flags),
		newLogoutCmd(opts, flags),
		newVersionCmd(opts),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	root := NewRootCmd(opts)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitcode.Success
	}

	fmt.Fprintf(opts.Err, "error: %v\n", err)
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitcode.UserError
}

// loadConfig reads and validates the configuration for commands that talk
// to the store.
func loadConfig(opts Options, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(flags.configPath, opts.Getenv)
	if err != nil {
		return nil, withCode(exitcode.ConfigError, err)
	}
	cfg.Quiet = flags.quiet
	cfg.Debug = flags.debug
	return cfg, nil
}

// readConfig reads the configuration without validating it.
func readConfig(opts Options, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Read(flags.configPath, opts.Getenv)
	if err != nil {
		return nil, withCode(exitcode.ConfigError, err)
	}
	cfg.Quiet = flags.quiet
	cfg.Debug = flags.debug
	return cfg, nil
}

func newVersionCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "todobot %s\n", opts.Version)
		},
	}
}
