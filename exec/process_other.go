//go:build !unix

package exec

import "os/exec"

// configureProcessGroup is a no-op on platforms without POSIX process
// groups; pgid bookkeeping is purely advisory there (see job_other.go).
func configureProcessGroup(cmd *exec.Cmd, pgid *int, first bool) {}
