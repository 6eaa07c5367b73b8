//go:build unix

package exec

import (
	"bufio"
	"os"

	"golang.org/x/term"
)

// readLineSilent implements read -s: put the terminal in raw mode
// (suppressing echo) for the duration of one line, when stdin is
// actually a terminal (grounded on job/job_unix.go's term.IsTerminal
// use, generalized from job control's tty detection to read's).
func (s *Shell) readLineSilent() (string, bool) {
	f, ok := s.Stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", false
	}
	oldState, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return "", false
	}
	defer term.Restore(int(f.Fd()), oldState)
	r := bufio.NewReader(f)
	var sb []byte
	for {
		b, err := r.ReadByte()
		if err != nil || b == '\n' || b == '\r' {
			break
		}
		sb = append(sb, b)
	}
	return string(sb), true
}
