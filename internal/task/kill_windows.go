//go:build windows

package task

import "os"

func terminate(pid, pgid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func waitThenForceKill(pid, pgid int) {}
