package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHELLBOX_CONFIG_DIR", t.TempDir())
	cfg, err := Load(t.TempDir(), false)
	require.NoError(t, err)
	require.Equal(t, ApprovalDefault, cfg.ApprovalMode)
	require.False(t, cfg.Permissions.SkipRequests)
	require.False(t, cfg.Options.Debug)
}

func TestLoadGlobalFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHELLBOX_CONFIG_DIR", dir)
	data := `{"approval_mode":"yolo","permissions":{"allowed_tools":["bash"]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shellbox.json"), []byte(data), 0o644))

	cfg, err := Load(t.TempDir(), false)
	require.NoError(t, err)
	require.Equal(t, ApprovalYOLO, cfg.ApprovalMode)
	require.True(t, cfg.Permissions.SkipRequests)
	require.Equal(t, []string{"bash"}, cfg.Permissions.AllowedTools)
}

func TestLoadLocalOverridesGlobal(t *testing.T) {
	globalDir := t.TempDir()
	t.Setenv("SHELLBOX_CONFIG_DIR", globalDir)
	require.NoError(t, os.WriteFile(
		filepath.Join(globalDir, "shellbox.json"),
		[]byte(`{"approval_mode":"yolo"}`), 0o644))

	workingDir := t.TempDir()
	localDir := filepath.Join(workingDir, ".shellbox")
	require.NoError(t, os.MkdirAll(localDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(localDir, "shellbox.json"),
		[]byte(`{"approval_mode":"accept-edits"}`), 0o644))

	cfg, err := Load(workingDir, false)
	require.NoError(t, err)
	require.Equal(t, ApprovalAcceptEdits, cfg.ApprovalMode)
	require.False(t, cfg.Permissions.SkipRequests)
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHELLBOX_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "shellbox.json"),
		[]byte(`{"approval_mode":"whatever"}`), 0o644))

	_, err := Load(t.TempDir(), false)
	require.ErrorContains(t, err, "invalid approval mode")
}

func TestAllowToolPersists(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHELLBOX_CONFIG_DIR", dir)
	cfg, err := Load(t.TempDir(), false)
	require.NoError(t, err)

	require.NoError(t, cfg.AllowTool("bash:execute"))
	require.Contains(t, cfg.Permissions.AllowedTools, "bash:execute")

	// Allowing again is a no-op.
	require.NoError(t, cfg.AllowTool("bash:execute"))

	reloaded, err := Load(t.TempDir(), false)
	require.NoError(t, err)
	require.Equal(t, []string{"bash:execute"}, reloaded.Permissions.AllowedTools)
}

func TestDataDir(t *testing.T) {
	t.Setenv("SHELLBOX_CONFIG_DIR", t.TempDir())
	workingDir := t.TempDir()
	cfg, err := Load(workingDir, false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(workingDir, ".shellbox"), cfg.DataDir())

	cfg.Options.DataDirectory = "/var/lib/shellbox"
	require.Equal(t, "/var/lib/shellbox", cfg.DataDir())
}

func TestMaxOutputLength(t *testing.T) {
	t.Setenv(MaxOutputLengthEnv, "")
	require.Equal(t, 30_000, MaxOutputLength())

	t.Setenv(MaxOutputLengthEnv, "5000")
	require.Equal(t, 5000, MaxOutputLength())

	t.Setenv(MaxOutputLengthEnv, "9999999")
	require.Equal(t, 120_000, MaxOutputLength())

	t.Setenv(MaxOutputLengthEnv, "not-a-number")
	require.Equal(t, 30_000, MaxOutputLength())

	t.Setenv(MaxOutputLengthEnv, "-5")
	require.Equal(t, 30_000, MaxOutputLength())
}
