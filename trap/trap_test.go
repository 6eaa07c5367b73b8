//go:build unix

package trap

import (
	"syscall"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestSetAndList(t *testing.T) {
	r := NewRegistry()
	qt.Assert(t, r.Set("INT", "echo got-int"), qt.IsNil)
	qt.Assert(t, r.Set("SIGTERM", "echo got-term"), qt.IsNil)

	got := r.List()
	qt.Assert(t, len(got), qt.Equals, 2)
	qt.Assert(t, got[0].Name, qt.Equals, "INT")
	qt.Assert(t, got[0].Command, qt.Equals, "echo got-int")
	qt.Assert(t, got[1].Name, qt.Equals, "TERM")
	qt.Assert(t, got[1].Command, qt.Equals, "echo got-term")
}

func TestSetTwiceWithoutClearingFails(t *testing.T) {
	r := NewRegistry()
	qt.Assert(t, r.Set("INT", "one"), qt.IsNil)
	err := r.Set("INT", "two")
	qt.Assert(t, err, qt.Not(qt.IsNil))

	qt.Assert(t, r.Set("INT", ""), qt.IsNil)
	qt.Assert(t, r.Set("INT", "two"), qt.IsNil)
}

func TestSetUncatchable(t *testing.T) {
	r := NewRegistry()
	qt.Assert(t, r.Set("KILL", "anything"), qt.Not(qt.IsNil))
	qt.Assert(t, r.Set("STOP", "anything"), qt.Not(qt.IsNil))
}

func TestSetUnknownSignal(t *testing.T) {
	r := NewRegistry()
	qt.Assert(t, r.Set("NOTASIGNAL", "x"), qt.Not(qt.IsNil))
}

func TestExitTrap(t *testing.T) {
	r := NewRegistry()
	_, ok := r.ExitCommand()
	qt.Assert(t, ok, qt.IsFalse)

	qt.Assert(t, r.Set("EXIT", "cleanup"), qt.IsNil)
	cmd, ok := r.ExitCommand()
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, cmd, qt.Equals, "cleanup")

	err := r.Set("EXIT", "other")
	qt.Assert(t, err, qt.Not(qt.IsNil))
}

func TestPollDeliversRealSignal(t *testing.T) {
	r := NewRegistry()
	qt.Assert(t, r.Set("USR1", "echo caught"), qt.IsNil)

	qt.Assert(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1), qt.IsNil)

	deadline := time.Now().Add(2 * time.Second)
	var pending []struct{ Name, Command string }
	for time.Now().Before(deadline) {
		pending = r.Poll()
		if len(pending) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	qt.Assert(t, len(pending), qt.Equals, 1)
	qt.Assert(t, pending[0].Name, qt.Equals, "USR1")
	qt.Assert(t, pending[0].Command, qt.Equals, "echo caught")

	// Drained, so a second poll sees nothing until another signal fires.
	qt.Assert(t, r.Poll(), qt.IsNil)
}

func TestClearingLastHandlerStopsForwarding(t *testing.T) {
	r := NewRegistry()
	qt.Assert(t, r.Set("USR2", "echo x"), qt.IsNil)
	qt.Assert(t, r.Set("USR2", ""), qt.IsNil)

	qt.Assert(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR2), qt.IsNil)
	time.Sleep(20 * time.Millisecond)
	qt.Assert(t, r.Poll(), qt.IsNil)
}
