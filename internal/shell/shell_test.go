package shell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShellExec(t *testing.T) {
	t.Parallel()

	sh := NewShell(Options{WorkingDir: t.TempDir()})
	stdout, stderr, err := sh.Exec(t.Context(), "echo hello")
	require.NoError(t, err)
	require.Equal(t, "hello\n", stdout)
	require.Empty(t, stderr)
}

func TestShellStatePersistsAcrossCommands(t *testing.T) {
	t.Parallel()

	sh := NewShell(Options{WorkingDir: t.TempDir()})
	_, _, err := sh.Exec(t.Context(), "FOO=bar")
	require.NoError(t, err)
	stdout, _, err := sh.Exec(t.Context(), "echo $FOO")
	require.NoError(t, err)
	require.Equal(t, "bar\n", stdout)
}

func TestCommandsBlocker(t *testing.T) {
	t.Parallel()

	sh := NewShell(Options{
		WorkingDir: t.TempDir(),
		BlockFuncs: []BlockFunc{CommandsBlocker([]string{"curl"})},
	})
	_, _, err := sh.Exec(t.Context(), "curl http://example.com")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not allowed for security reasons")
}

func TestArgumentsBlocker(t *testing.T) {
	t.Parallel()

	blocker := ArgumentsBlocker("git", []string{"push"}, nil)
	require.True(t, blocker([]string{"git", "push"}))
	require.True(t, blocker([]string{"git", "push", "origin"}))
	require.False(t, blocker([]string{"git", "pull"}))
	require.False(t, blocker([]string{"ls"}))
}
