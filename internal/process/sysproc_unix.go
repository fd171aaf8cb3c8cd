//go:build !windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcAttr puts the child in its own process group so a terminal Ctrl-C
// reaches only the parent, which then stops the child deliberately.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func interrupt(p *os.Process) error {
	return signalGroup(p, syscall.SIGINT)
}

func kill(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

// signalGroup signals the child's whole process group, falling back to the
// child alone.
func signalGroup(p *os.Process, sig syscall.Signal) error {
	if err := syscall.Kill(-p.Pid, sig); err == nil {
		return nil
	}
	return p.Signal(sig)
}
