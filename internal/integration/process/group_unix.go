//go:build unix

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts cmd as the leader of a new process group.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// signalGroup signals every process in proc's group. It falls back to proc
// alone when the group is gone or sig is not a syscall.Signal.
func signalGroup(proc *os.Process, sig os.Signal) error {
	if s, ok := sig.(syscall.Signal); ok {
		err := syscall.Kill(-proc.Pid, s)
		if !errors.Is(err, syscall.ESRCH) {
			return err
		}
	}
	return proc.Signal(sig)
}
