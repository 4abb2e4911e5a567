package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeSnapshot builds a snapshot file through the snapshot command.
func makeSnapshot(t *testing.T) string {
	t.Helper()
	logPath := writeLog(t,
		"BEGIN f1",
		"SET rect1.x 50",
		`SET rect1.color "red"`,
		"END f1",
	)
	snapPath := filepath.Join(t.TempDir(), "world.snapshot")
	_, err := execute(t, "snapshot", "--log", logPath, "--out", snapPath)
	require.NoError(t, err)
	return snapPath
}

func TestVerifyCommandValid(t *testing.T) {
	snapPath := makeSnapshot(t)

	out, err := execute(t, "verify", snapPath)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 1 node(s) at watermark 4")
}

func TestVerifyCommandChecksumMismatch(t *testing.T) {
	snapPath := makeSnapshot(t)

	data, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	// Flip the stored value without updating the checksum.
	require.Contains(t, string(data), `"x":50`)
	tampered := strings.Replace(string(data), `"x":50`, `"x":51`, 1)
	require.NoError(t, os.WriteFile(snapPath, []byte(tampered), 0o644))

	out, err := execute(t, "verify", snapPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "invalid:")
}

func TestVerifyCommandSchemaViolation(t *testing.T) {
	snapPath := filepath.Join(t.TempDir(), "bad.snapshot")
	require.NoError(t, os.WriteFile(snapPath, []byte(`{"watermark":-4,"nodes":[]}`), 0o644))

	_, err := execute(t, "verify", snapPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestVerifyCommandNotADocument(t *testing.T) {
	snapPath := filepath.Join(t.TempDir(), "junk.snapshot")
	require.NoError(t, os.WriteFile(snapPath, []byte("not json at all {{{"), 0o644))

	_, err := execute(t, "verify", snapPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestVerifyCommandMissingFile(t *testing.T) {
	_, err := execute(t, "verify", filepath.Join(t.TempDir(), "absent.snapshot"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
