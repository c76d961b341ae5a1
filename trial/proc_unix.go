//go:build unix

package trial

import (
	"os/exec"
	"syscall"
)

// killGroupOnCancel puts the child in its own process group and kills the
// whole group when the context is cancelled, so an mpirun under sh -c does
// not outlive us.
func killGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
