//go:build unix

package exec

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup joins cmd to the pipeline's process group
// (spec §4.6): the first segment starts a new group rooted at its own
// pid; later segments join that group explicitly, matching the
// teacher's job-control-free model extended with real POSIX process
// groups (grounded on job/job_unix.go's tcsetpgrp handoff, which
// assumes every pid in a Job shares one Pgid).
func configureProcessGroup(cmd *exec.Cmd, pgid *int, first bool) {
	attr := &syscall.SysProcAttr{Setpgid: true}
	if !first {
		attr.Pgid = *pgid
	}
	cmd.SysProcAttr = attr
}
