//go:build !windows

package probe

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup starts the child in a new process group so the whole
// group can be signalled on cancellation.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		return
	}
	cmd.SysProcAttr.Setpgid = true
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
}

// elevationPrefix returns the command prefix needed to run fan control with
// root privileges. Nothing is needed when the server already runs as root.
func elevationPrefix() []string {
	if unix.Geteuid() == 0 {
		return nil
	}
	return []string{"sudo"}
}
