//go:build windows

package probe

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// CREATE_NEW_PROCESS_GROUP mirrors the Unix Setpgid behaviour closely enough
// for killing a timed-out probe.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
		return
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// Windows has no sudo; the probe is expected to be launched from an elevated shell.
func elevationPrefix() []string {
	return nil
}
