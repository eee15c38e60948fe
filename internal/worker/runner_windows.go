//go:build windows

package worker

import (
	"os/exec"
	"strconv"
)

// setSysProcAttr is a no-op on Windows; the tree walk happens in
// signalTree instead.
func setSysProcAttr(cmd *exec.Cmd) {}

// signalTree stops the worker and its tool subprocesses. Windows has
// no signalable process groups, so the tree walk is delegated to
// taskkill. A tree that already exited makes taskkill fail; that is
// ignored because the caller's bounded wait on the reaper settles the
// outcome either way.
func signalTree(pid int, kill bool) error {
	args := []string{"/T", "/PID", strconv.Itoa(pid)}
	if kill {
		args = append(args, "/F")
	}
	_ = exec.Command("taskkill", args...).Run()
	return nil
}
