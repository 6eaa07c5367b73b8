// Package job implements rush's Job Manager (spec §4.6): process-group
// bookkeeping for pipelines, foreground/background terminal handoff,
// and exit-status reconciliation. It is grounded on the teacher's
// signal-aware exec handling in interp/handler.go's ExecHandlerFunc
// and the os_unix.go/os_notunix.go build-tag split, generalized from
// a single-command kill timeout into full process-group job control.
package job

import "fmt"

// Status is a Job's lifecycle state (spec §3).
type Status int

const (
	Running Status = iota
	Stopped
	Done
	Killed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	case Killed:
		return "Killed"
	}
	return "Unknown"
}

// Job tracks one pipeline's process group from spawn until reaping
// (spec §3's Job data model).
type Job struct {
	ID      uint32
	Pgid    int
	Pids    []int
	Status  Status
	Command string

	// ExitCode is the last segment's reported exit status, valid once
	// Status is Done or Killed.
	ExitCode int
	// Signal is set when Status is Killed, naming the signal that
	// terminated the process group.
	Signal int

	foreground bool
	exited     map[int]bool
}

// ErrUnknownJob is returned by operations given an id with no Job.
type ErrUnknownJob uint32

func (e ErrUnknownJob) Error() string { return fmt.Sprintf("job %d: no such job", uint32(e)) }
