//go:build unix

package job

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func startProcessGroup(t *testing.T, args ...string) (*exec.Cmd, int) {
	t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	qt.Assert(t, cmd.Start(), qt.IsNil)
	return cmd, cmd.Process.Pid
}

func TestRegisterAndWaitForeground(t *testing.T) {
	m := NewManager(-1)
	cmd, pid := startProcessGroup(t, "sh", "-c", "exit 7")

	j := m.Register(pid, []int{pid}, "sh -c 'exit 7'", true)
	qt.Assert(t, j.Status, qt.Equals, Running)

	codes, err := m.WaitForeground(j)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, codes, qt.DeepEquals, []int{7})
	qt.Assert(t, j.Status, qt.Equals, Done)
	qt.Assert(t, j.ExitCode, qt.Equals, 7)
	_ = cmd
}

func TestReapBackground(t *testing.T) {
	m := NewManager(-1)
	_, pid := startProcessGroup(t, "sh", "-c", "sleep 0.05; exit 3")
	j := m.Register(pid, []int{pid}, "sleep+exit", false)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && j.Status == Running {
		m.ReapBackground()
		time.Sleep(10 * time.Millisecond)
	}
	qt.Assert(t, j.Status, qt.Equals, Done)
	qt.Assert(t, j.ExitCode, qt.Equals, 3)
}

func TestListAndGetAndCleanup(t *testing.T) {
	m := NewManager(-1)
	_, pid1 := startProcessGroup(t, "sh", "-c", "exit 0")
	j1 := m.Register(pid1, []int{pid1}, "one", true)
	m.WaitForeground(j1)

	_, pid2 := startProcessGroup(t, "sh", "-c", "sleep 1")
	j2 := m.Register(pid2, []int{pid2}, "two", false)

	list := m.List()
	qt.Assert(t, len(list), qt.Equals, 2)
	qt.Assert(t, list[0].ID < list[1].ID, qt.IsTrue)

	got, err := m.Get(j1.ID)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, got.Command, qt.Equals, "one")

	_, err = m.Get(9999)
	qt.Assert(t, err, qt.Not(qt.IsNil))

	removed := m.Cleanup()
	qt.Assert(t, removed, qt.DeepEquals, []uint32{j1.ID})
	qt.Assert(t, len(m.List()), qt.Equals, 1)

	qt.Assert(t, m.Signal(j2.ID, int(syscall.SIGKILL)), qt.IsNil)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && j2.Status == Running {
		m.ReapBackground()
		time.Sleep(10 * time.Millisecond)
	}
	qt.Assert(t, j2.Status, qt.Equals, Killed)
}

func TestGetUnknownJob(t *testing.T) {
	m := NewManager(-1)
	_, err := m.Get(1)
	qt.Assert(t, err, qt.Not(qt.IsNil))
	qt.Assert(t, err.Error(), qt.Equals, "job 1: no such job")
}
