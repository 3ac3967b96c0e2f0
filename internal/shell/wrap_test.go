package shell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPOSIX(t *testing.T) {
	t.Parallel()

	w := wrapper{flavor: FlavorPOSIX, shellPath: "/bin/bash"}
	wrapped := w.Wrap("echo hello", "/tmp/pidfile")

	require.Contains(t, wrapped, "echo hello")
	require.Contains(t, wrapped, "__code=$?")
	require.Contains(t, wrapped, `pgrep -g 0 >"/tmp/pidfile"`)
	require.True(t, strings.HasSuffix(wrapped, "exit $__code"))
}

func TestWrapFish(t *testing.T) {
	t.Parallel()

	w := wrapper{flavor: FlavorFish, shellPath: "/usr/bin/fish"}
	wrapped := w.Wrap("echo hello", "/tmp/pidfile")

	require.Contains(t, wrapped, "begin\necho hello\nend")
	require.Contains(t, wrapped, "set __code $status")
	require.True(t, strings.HasSuffix(wrapped, "exit $__code"))
}

func TestUnwrapRestoresCommandText(t *testing.T) {
	t.Parallel()

	w := wrapper{flavor: FlavorPOSIX, shellPath: "/bin/bash"}
	wrapped := w.Wrap("echo hello", "/tmp/pidfile")
	msg := "error running: " + wrapped

	unwrapped := w.Unwrap(msg, "echo hello", "/tmp/pidfile")
	require.Equal(t, "error running: echo hello", unwrapped)
	require.NotContains(t, unwrapped, "pgrep")
}

func TestPIDFilePathIsUnique(t *testing.T) {
	t.Parallel()

	require.NotEqual(t, pidFilePath(), pidFilePath())
}
