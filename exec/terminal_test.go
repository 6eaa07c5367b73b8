//go:build !windows

package exec

import (
	"bufio"
	"os"
	"testing"

	"github.com/creack/pty"
	qt "github.com/frankban/quicktest"
)

// TestIsTerminalOverPseudoTTY checks the -t fd test operator against a
// real pseudo-terminal rather than a pipe, since a bytes.Buffer or
// os.Pipe is never itself a tty (grounded on
// interp/terminal_test.go's Pseudo case for the same [[ -t $n ]]
// scenario).
func TestIsTerminalOverPseudoTTY(t *testing.T) {
	ptmx, tty, err := pty.Open()
	qt.Assert(t, err, qt.IsNil)
	defer ptmx.Close()
	defer tty.Close()

	s := New()
	s.Stdin = tty
	s.Stdout = tty
	s.Stderr = tty

	var gotLine string
	done := make(chan struct{})
	go func() {
		r := bufio.NewReader(ptmx)
		gotLine, _ = r.ReadString('\n')
		close(done)
	}()

	s.RunLine(`if [ -t 1 ]; then echo pty-yes; else echo pty-no; fi`)
	<-done
	qt.Assert(t, gotLine, qt.Equals, "pty-yes\r\n")
}

func TestIsTerminalOverPlainFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "rush-test")
	qt.Assert(t, err, qt.IsNil)
	defer f.Close()

	s := New()
	s.Stdout = f
	qt.Assert(t, s.isTerminal(1), qt.IsFalse)
}
