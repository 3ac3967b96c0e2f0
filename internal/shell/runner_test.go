//go:build !windows

package shell

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerEcho(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	res, err := r.Run(t.Context(), "echo hello", t.TempDir(), 0, nil)
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t, "hello\n", res.Stdout)
	require.Empty(t, res.Signal)
	require.False(t, res.Cancelled)
	require.NotZero(t, res.PID)
}

func TestRunnerNonZeroExit(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	res, err := r.Run(t.Context(), "exit 42", t.TempDir(), 0, nil)
	require.NoError(t, err)
	require.Equal(t, 42, res.ExitCode)
	require.False(t, res.Cancelled)
}

func TestRunnerStderr(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	res, err := r.Run(t.Context(), "echo oops >&2; exit 1", t.TempDir(), 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.ExitCode)
	require.Equal(t, "oops\n", res.Stderr)
}

func TestRunnerTimeout(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	start := time.Now()
	res, err := r.Run(t.Context(), "echo early; sleep 30", t.TempDir(), 300*time.Millisecond, nil)
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.Less(t, time.Since(start), 5*time.Second)
	// Output buffered before cancellation is still returned.
	require.Contains(t, res.Stdout, "early")
}

func TestRunnerContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	r := NewRunner()
	exe, err := r.Start(ctx, "sleep 30", t.TempDir(), 0)
	require.NoError(t, err)
	cancel()
	res := exe.Wait()
	require.True(t, res.Cancelled)
}

func TestRunnerStreamsOutputEvents(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	var chunks []string
	res, err := r.Run(t.Context(), "echo one; echo two", t.TempDir(), 0, func(ev OutputEvent) {
		require.Equal(t, StreamStdout, ev.Stream)
		chunks = append(chunks, ev.Chunk)
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)
	joined := strings.Join(chunks, "")
	require.Equal(t, res.Stdout, joined)
	require.Contains(t, joined, "one")
	require.Contains(t, joined, "two")
	// Emission order is preserved.
	require.Less(t, strings.Index(joined, "one"), strings.Index(joined, "two"))
}

func TestRunnerWorkingDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Temp dirs can sit behind a symlink, which pwd resolves.
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	r := NewRunner()
	res, err := r.Run(t.Context(), "pwd", dir, 0, nil)
	require.NoError(t, err)
	require.Equal(t, resolved, strings.TrimSpace(res.Stdout))
}
