package exec

import (
	"fmt"
	"os"

	"rush.sh/rush/ast"
)

// applyRedirections opens each redirection target and swaps it onto
// the Shell's current Stdin/Stdout/Stderr, returning a func that
// restores the previous streams and closes anything it opened (spec
// §4.5's open-mode table: >, >>, <, 2>, 2>>).
func (s *Shell) applyRedirections(redirs []*ast.Redirection) (restore func(), err error) {
	if len(redirs) == 0 {
		return func() {}, nil
	}
	origIn, origOut, origErr := s.Stdin, s.Stdout, s.Stderr
	var opened []*os.File
	cleanup := func() {
		s.Stdin, s.Stdout, s.Stderr = origIn, origOut, origErr
		for _, f := range opened {
			f.Close()
		}
	}
	ex := s.expander()
	for _, r := range redirs {
		target, err := ex.Literal(r.Target)
		if err != nil {
			cleanup()
			return nil, err
		}
		var f *os.File
		var oerr error
		switch r.Kind {
		case ast.RedirOutput:
			f, oerr = os.Create(target)
		case ast.RedirAppend:
			f, oerr = os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		case ast.RedirInput:
			f, oerr = os.Open(target)
		case ast.RedirStderr:
			f, oerr = os.Create(target)
		case ast.RedirStderrAppend:
			f, oerr = os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		default:
			oerr = fmt.Errorf("unsupported redirection")
		}
		if oerr != nil {
			cleanup()
			return nil, &IOError{Msg: fmt.Sprintf("%s: %s", target, oerr)}
		}
		opened = append(opened, f)
		switch r.Kind {
		case ast.RedirOutput, ast.RedirAppend:
			s.Stdout = f
		case ast.RedirInput:
			s.Stdin = f
		case ast.RedirStderr, ast.RedirStderrAppend:
			s.Stderr = f
		}
	}
	return cleanup, nil
}

// IOError is the taxonomy member for a failed redirection or read/write
// on a builtin's stream (spec §7).
type IOError struct{ Msg string }

func (e *IOError) Error() string { return e.Msg }
