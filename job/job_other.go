//go:build !unix

package job

import (
	"fmt"
	"sync"
)

// Manager is a minimal, non-functional stand-in on platforms without
// POSIX process groups and signals (spec §1: the Shell targets POSIX
// systems; job control has no meaningful analogue on Windows).
type Manager struct {
	mu    sync.Mutex
	jobs  map[uint32]*Job
	order []uint32
	next  uint32
}

func NewManager(ttyFd int) *Manager {
	return &Manager{jobs: make(map[uint32]*Job), next: 1}
}

func (m *Manager) ShellPgid() int { return 0 }
func (m *Manager) TTYFd() int     { return -1 }

func (m *Manager) Register(pgid int, pids []int, command string, foreground bool) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := &Job{ID: m.next, Pgid: pgid, Pids: append([]int(nil), pids...), Status: Done, Command: command}
	m.jobs[j.ID] = j
	m.order = append(m.order, j.ID)
	m.next++
	return j
}

func (m *Manager) WaitForeground(j *Job) ([]int, error) {
	return nil, fmt.Errorf("job control is not supported on this platform")
}

func (m *Manager) ReapBackground() []uint32 { return nil }

func (m *Manager) Cleanup() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed, kept []uint32
	for _, id := range m.order {
		if m.jobs[id].Status == Done || m.jobs[id].Status == Killed {
			delete(m.jobs, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return removed
}

func (m *Manager) List() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id])
	}
	return out
}

func (m *Manager) Get(id uint32) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrUnknownJob(id)
	}
	return j, nil
}

func (m *Manager) MostRecentStopped() *Job { return nil }

func (m *Manager) BringToForeground(id uint32) ([]int, error) {
	return nil, fmt.Errorf("job control is not supported on this platform")
}

func (m *Manager) ResumeBackground(id uint32) error {
	return fmt.Errorf("job control is not supported on this platform")
}

func (m *Manager) Signal(id uint32, signo int) error {
	return fmt.Errorf("job control is not supported on this platform")
}
