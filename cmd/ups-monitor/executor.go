package main

import (
	"fmt"
	"os"
	"os/exec"
)

// shutdownExecutor performs the privileged power-off.
type shutdownExecutor interface {
	Shutdown(reason string) error
}

// systemExecutor runs the real shutdown command, via sudo when the
// monitor is not running as root.
type systemExecutor struct {
	dryRun bool
}

func (e *systemExecutor) Shutdown(reason string) error {
	if e.dryRun {
		log.Info("DRY-RUN: shutdown suppressed (would run: shutdown -h now)")
		return nil
	}

	cmd := []string{"shutdown", "-h", "now"}
	if os.Geteuid() != 0 {
		cmd = append([]string{"sudo", "-n"}, cmd...)
	}

	output, err := exec.Command(cmd[0], cmd[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("shutdown command failed: %v\n%s", err, output)
	}
	log.Info("Shutdown command issued.")
	return nil
}
