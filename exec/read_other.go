//go:build !unix

package exec

// readLineSilent has no raw-mode terminal support outside unix; read
// -s falls back to the normal (echoing) read path.
func (s *Shell) readLineSilent() (string, bool) { return "", false }
