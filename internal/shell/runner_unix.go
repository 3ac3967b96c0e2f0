//go:build !windows

package shell

import (
	"os/exec"
	"syscall"
)

// setProcGroup puts the child in its own process group so the whole tree can
// be signalled as a unit.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup force-kills every process in the group led by pid.
func killProcessGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// waitSignal reports the terminating signal name, if the process was killed
// by one.
func waitSignal(exitErr *exec.ExitError) (string, bool) {
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return "", false
	}
	return ws.Signal().String(), true
}
