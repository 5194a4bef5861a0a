package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// UpdateGoldenEnv rewrites golden files instead of comparing when set.
const UpdateGoldenEnv = "GOLDEN_UPDATE"

// GoldenPath returns the golden file path for name under testdata.
func GoldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

// GoldenString compares a chat reply against testdata/<name>.golden.
// Replies are compared as text so a mismatch shows a line diff; a trailing
// newline in the file is ignored because replies never end with one.
func GoldenString(t *testing.T, name, got string) {
	t.Helper()

	path := GoldenPath(name)
	if os.Getenv(UpdateGoldenEnv) != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(got+"\n"), 0644))
		return
	}

	data, err := os.ReadFile(path)
	require.NoErrorf(t, err, "read golden file %s (set %s=1 to create it)\ngot:\n%s", path, UpdateGoldenEnv, got)

	want := strings.TrimSuffix(string(data), "\n")
	assert.Equalf(t, want, got, "reply differs from %s", path)
}
