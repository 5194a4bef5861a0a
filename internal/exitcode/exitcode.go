// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates bad arguments or flags.
	UserError = 1

	// ConfigError indicates a missing or invalid configuration or credential.
	ConfigError = 2

	// BackendError indicates a store, chat platform or network failure.
	BackendError = 3
)
