//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// isolate places the child in its own process group and arranges for
// cancellation to kill the whole group.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
