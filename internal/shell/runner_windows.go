//go:build windows

package shell

import (
	"os"
	"os/exec"
)

func setProcGroup(cmd *exec.Cmd) {}

func killProcessGroup(pid int) {
	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Kill()
	}
}

func waitSignal(exitErr *exec.ExitError) (string, bool) {
	return "", false
}
