//go:build !windows

package worker

import (
	"errors"
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the worker in its own process group so a
// termination signal also reaches the tool subprocesses it spawned.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalTree signals the worker's whole process group. A group that
// already exited is not an error; the caller's bounded wait on the
// reaper settles the outcome.
func signalTree(pid int, kill bool) error {
	sig := syscall.SIGTERM
	if kill {
		sig = syscall.SIGKILL
	}

	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}
