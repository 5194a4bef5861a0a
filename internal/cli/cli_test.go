package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todobot/internal/cli"
	"todobot/internal/exitcode"
)

var fixedNow = time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)

// run executes the CLI with an empty environment.
func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := cli.Execute(context.Background(), args, cli.Options{
		Version: "1.2.3",
		Out:     &stdout,
		Err:     &stderr,
		Getenv:  func(string) string { return "" },
		Now:     func() time.Time { return fixedNow },
	})
	return code, stdout.String(), stderr.String()
}

// writeConfig writes a TOML config into a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func sqliteConfig(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "tasks.db")
	return writeConfig(t, fmt.Sprintf(`
[store]
backend = "sqlite"

[sqlite]
path = %q

[bot]
time_zone = "UTC"

[log]
level = "error"
`, db))
}

func TestVersion(t *testing.T) {
	code, out, errOut := run(t, "version")
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "todobot 1.2.3\n", out)
	assert.Empty(t, errOut)
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := run(t, "unknowncmd")
	assert.Equal(t, exitcode.UserError, code)
	assert.True(t, strings.HasPrefix(errOut, "error: unknown command"), errOut)
}

func TestSay_AddThenList(t *testing.T) {
	cfg := sqliteConfig(t)

	code, out, errOut := run(t, "--config", cfg, "say", "Submit report 2025-06-10")
	require.Equal(t, exitcode.Success, code, errOut)
	assert.Equal(t, "Added task «Submit report» (due: 2025-06-10).\n", out)

	code, out, errOut = run(t, "--config", cfg, "say", "2025-06-15までのタスク")
	require.Equal(t, exitcode.Success, code, errOut)
	assert.Equal(t, "• Submit report（due: 2025-06-10）\n", out)
}

func TestSay_UsersAreSeparate(t *testing.T) {
	cfg := sqliteConfig(t)

	code, _, errOut := run(t, "--config", cfg, "say", "--user", "U1", "a 2025-06-10")
	require.Equal(t, exitcode.Success, code, errOut)

	code, out, _ := run(t, "--config", cfg, "say", "--user", "U2", "2025-06-15までのタスク")
	require.Equal(t, exitcode.Success, code)
	assert.Equal(t, "No tasks found in that range.\n", out)
}

func TestSay_Help(t *testing.T) {
	cfg := writeConfig(t, "[store]\nbackend = \"memory\"\n[bot]\ntime_zone = \"UTC\"\n")

	code, out, _ := run(t, "--config", cfg, "say", "how", "to", "use")
	require.Equal(t, exitcode.Success, code)
	assert.Contains(t, out, "How to use:")
}

func TestSay_ConfigError(t *testing.T) {
	cfg := writeConfig(t, "[store]\nbackend = \"carrier-pigeon\"\n")

	code, _, errOut := run(t, "--config", cfg, "say", "hello")
	assert.Equal(t, exitcode.ConfigError, code)
	assert.Contains(t, errOut, "unknown store backend")
}

func TestSay_UnknownConfigKey(t *testing.T) {
	cfg := writeConfig(t, "[store]\nbakend = \"memory\"\n")

	code, _, errOut := run(t, "--config", cfg, "say", "hello")
	assert.Equal(t, exitcode.ConfigError, code)
	assert.Contains(t, errOut, "unknown key")
}

func TestSay_MissingArgs(t *testing.T) {
	code, _, _ := run(t, "say")
	assert.Equal(t, exitcode.UserError, code)
}

func TestServe_MissingLineCredentials(t *testing.T) {
	cfg := writeConfig(t, "[store]\nbackend = \"memory\"\n[bot]\ntime_zone = \"UTC\"\n")

	code, _, errOut := run(t, "--config", cfg, "serve")
	assert.Equal(t, exitcode.ConfigError, code)
	assert.Contains(t, errOut, "channel_secret")
}

func TestLogout_NotLoggedIn(t *testing.T) {
	cfg := writeConfig(t, "")

	code, out, _ := run(t, "--config", cfg, "logout")
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "not logged in\n", out)
}

func TestLogout_RemovesToken(t *testing.T) {
	cfg := writeConfig(t, "")
	token := filepath.Join(filepath.Dir(cfg), "token.json")
	require.NoError(t, os.WriteFile(token, []byte(`{}`), 0600))

	code, out, _ := run(t, "--config", cfg, "-q", "logout")
	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, out)
	assert.NoFileExists(t, token)
}

func TestLogin_MissingOAuthClient(t *testing.T) {
	cfg := writeConfig(t, "")

	code, _, errOut := run(t, "--config", cfg, "login")
	assert.Equal(t, exitcode.ConfigError, code)
	assert.Contains(t, errOut, "Google Sheets API")
	assert.Contains(t, errOut, "error: oauth_client.json not found")
}

func TestSay_EmptyUser(t *testing.T) {
	cfg := sqliteConfig(t)

	code, out, errOut := run(t, "--config", cfg, "say", "--user", " ", "Submit report 2025-06-10")
	assert.Equal(t, exitcode.UserError, code)
	assert.Empty(t, out)
	assert.Equal(t, "error: --user must not be empty\n", errOut)

	code, out, _ = run(t, "--config", cfg, "say", "2025-06-15までのタスク")
	require.Equal(t, exitcode.Success, code)
	assert.Equal(t, "No tasks found in that range.\n", out)
}
