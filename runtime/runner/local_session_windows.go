//go:build windows

package runner

import "os/exec"

func configureCommandForCancellation(_ *exec.Cmd) {
	// Windows has no Unix process-group semantics to configure.
}

func terminateCommandOnCancel(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
