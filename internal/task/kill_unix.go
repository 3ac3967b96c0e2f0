//go:build !windows

package task

import (
	"syscall"
	"time"
)

const killGracePeriod = 2 * time.Second

// terminate sends SIGTERM to the task's process group, falling back to the
// primary process when the group id is unknown.
func terminate(pid, pgid int) error {
	if pgid != 0 {
		return syscall.Kill(-pgid, syscall.SIGTERM)
	}
	return syscall.Kill(pid, syscall.SIGTERM)
}

// waitThenForceKill gives the process the grace period to exit, then
// escalates to SIGKILL if it is still alive.
func waitThenForceKill(pid, pgid int) {
	deadline := time.Now().Add(killGracePeriod)
	for time.Now().Before(deadline) {
		if syscall.Kill(pid, 0) != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	if pgid != 0 {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}
