//go:build windows

package process

import (
	"os"
	"os/exec"
)

func setProcAttr(*exec.Cmd) {}

// Windows has no SIGINT for child processes; kill immediately.
func interrupt(p *os.Process) error {
	return p.Kill()
}

func kill(p *os.Process) error {
	return p.Kill()
}
