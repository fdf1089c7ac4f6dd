//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

func configureCommandForCancellation(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateCommandOnCancel(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative pid targets the whole process group, killing any
	// grandchildren the interpreter spawned.
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
