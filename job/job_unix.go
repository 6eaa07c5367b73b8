//go:build unix

package job

import (
	"os"
	"sort"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Manager owns process-group bookkeeping for every pipeline the
// Executor spawns (spec §4.6). All jobs belong to the Manager
// exclusively; the Executor never waits on a pid directly.
type Manager struct {
	mu        sync.Mutex
	jobs      map[uint32]*Job
	order     []uint32
	next      uint32
	ttyFd     int
	shellPgid int
}

// NewManager returns a Manager that grants/reclaims the controlling
// terminal on ttyFd (pass -1 if the shell has no controlling tty, e.g.
// under test).
func NewManager(ttyFd int) *Manager {
	pgid, _ := syscall.Getpgid(os.Getpid())
	return &Manager{jobs: make(map[uint32]*Job), next: 1, ttyFd: ttyFd, shellPgid: pgid}
}

func (m *Manager) isTTY() bool {
	return m.ttyFd >= 0 && term.IsTerminal(m.ttyFd)
}

// tcsetpgrp hands the controlling terminal to pgid, ignoring errors
// when rush isn't actually attached to a terminal (e.g. test harnesses
// and testscript runs, which redirect stdio to pipes).
func (m *Manager) tcsetpgrp(pgid int) {
	if !m.isTTY() {
		return
	}
	_ = unix.IoctlSetPointerInt(m.ttyFd, unix.TIOCSPGRP, pgid)
}

func (m *Manager) ShellPgid() int { return m.shellPgid }
func (m *Manager) TTYFd() int     { return m.ttyFd }

// Register records a freshly spawned pipeline as a Job and returns it
// (spec §4.6 "register").
func (m *Manager) Register(pgid int, pids []int, command string, foreground bool) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := &Job{
		ID:         m.next,
		Pgid:       pgid,
		Pids:       append([]int(nil), pids...),
		Status:     Running,
		Command:    command,
		foreground: foreground,
		exited:     make(map[int]bool),
	}
	m.jobs[j.ID] = j
	m.order = append(m.order, j.ID)
	m.next++
	return j
}

// WaitForeground blocks waiting for every pid in j, granting it the
// controlling terminal for the duration and reclaiming it for the
// shell afterwards (spec §4.6). It returns one exit code per j.Pids,
// in the same order, so a caller combining external pids with
// in-process builtin segments can pick out whichever segment is
// actually last in the pipeline.
func (m *Manager) WaitForeground(j *Job) ([]int, error) {
	m.tcsetpgrp(j.Pgid)
	defer m.tcsetpgrp(m.shellPgid)

	codes := make([]int, len(j.Pids))
	for i, pid := range j.Pids {
		var ws syscall.WaitStatus
		_, err := syscall.Wait4(pid, &ws, syscall.WUNTRACED, nil)
		if err != nil {
			continue
		}
		switch {
		case ws.Stopped():
			j.Status = Stopped
			codes[i] = 128 + int(ws.StopSignal())
			return codes, nil
		case ws.Signaled():
			j.Status = Killed
			j.Signal = int(ws.Signal())
			codes[i] = 128 + int(ws.Signal())
		case ws.Exited():
			codes[i] = ws.ExitStatus()
		}
	}
	if j.Status != Stopped {
		j.Status = Done
	}
	if len(codes) > 0 {
		j.ExitCode = codes[len(codes)-1]
	}
	return codes, nil
}

// ReapBackground non-blockingly reconciles every tracked job's status,
// called opportunistically from the prompt loop and the jobs builtin
// (spec §4.6 "reap_background"). It returns the ids whose status
// changed.
func (m *Manager) ReapBackground() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated []uint32
	for id, j := range m.jobs {
		if j.Status == Done || j.Status == Killed {
			continue
		}
		changed := false
		for _, pid := range j.Pids {
			if j.exited[pid] {
				continue
			}
			var ws syscall.WaitStatus
			wpid, err := syscall.Wait4(pid, &ws, syscall.WNOHANG|syscall.WUNTRACED, nil)
			if err != nil || wpid == 0 {
				continue
			}
			changed = true
			switch {
			case ws.Stopped():
				j.Status = Stopped
			case ws.Signaled():
				j.exited[pid] = true
				j.Status = Killed
				j.Signal = int(ws.Signal())
				j.ExitCode = 128 + int(ws.Signal())
			case ws.Exited():
				j.exited[pid] = true
				if pid == j.Pids[len(j.Pids)-1] {
					j.ExitCode = ws.ExitStatus()
				}
			}
		}
		if !changed {
			continue
		}
		updated = append(updated, id)
		if j.Status == Killed {
			continue
		}
		allExited := true
		for _, pid := range j.Pids {
			if !j.exited[pid] {
				allExited = false
				break
			}
		}
		if allExited {
			j.Status = Done
		}
	}
	return updated
}

// Cleanup drops every Done/Killed job from the table and returns the
// ids removed (spec §4.6 "cleanup").
func (m *Manager) Cleanup() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed, kept []uint32
	for _, id := range m.order {
		j := m.jobs[id]
		if j.Status == Done || j.Status == Killed {
			delete(m.jobs, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return removed
}

// List returns a snapshot sorted by id (spec §4.6 "list").
func (m *Manager) List() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get looks up a job by id.
func (m *Manager) Get(id uint32) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrUnknownJob(id)
	}
	return j, nil
}

// MostRecentStopped returns the job `fg`/`bg` default to when no id is
// given (spec §4.6).
func (m *Manager) MostRecentStopped() *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		if j := m.jobs[m.order[i]]; j.Status == Stopped {
			return j
		}
	}
	return nil
}

// BringToForeground resumes a stopped or backgrounded job in the
// foreground (the `fg` builtin), waiting for it to finish or stop
// again.
func (m *Manager) BringToForeground(id uint32) ([]int, error) {
	j, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	j.Status = Running
	j.foreground = true
	_ = syscall.Kill(-j.Pgid, syscall.SIGCONT)
	return m.WaitForeground(j)
}

// ResumeBackground resumes a stopped job without taking the terminal
// (the `bg` builtin).
func (m *Manager) ResumeBackground(id uint32) error {
	j, err := m.Get(id)
	if err != nil {
		return err
	}
	j.Status = Running
	j.foreground = false
	return syscall.Kill(-j.Pgid, syscall.SIGCONT)
}

// Signal delivers signo to every process in the job's group (the
// `kill` builtin is a thin wrapper over this, per spec §4.6).
func (m *Manager) Signal(id uint32, signo int) error {
	j, err := m.Get(id)
	if err != nil {
		return err
	}
	return syscall.Kill(-j.Pgid, syscall.Signal(signo))
}
