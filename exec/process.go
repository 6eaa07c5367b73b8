package exec

import (
	"io"
	goexec "os/exec"
	"path/filepath"
	"strings"

	"rush.sh/rush/vars"
)

// lookPath resolves name against the variable manager's PATH, the way
// the teacher's DefaultExecHandler in interp/handler.go resolves a
// command name before exec'ing it, generalized to read PATH from
// rush's own variable table rather than os.Environ.
func lookPath(dir string, vm *vars.Manager, name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	if strings.Contains(name, "/") {
		return filepath.Join(dir, name), nil
	}
	pathVar, _ := vm.Get("PATH")
	for _, d := range filepath.SplitList(pathVar.AsString()) {
		if d == "" {
			d = "."
		}
		cand := filepath.Join(d, name)
		if goexec.LookPath(cand) == nil {
			return cand, nil
		}
	}
	return "", goexec.ErrNotFound
}

// spawn starts name (already resolved to an absolute/relative path) as
// a child process with the given stdio, joining the process group
// rooted at *pgid (or starting a new one if first), and returns its
// pid without waiting for it — waiting is always the job.Manager's
// job (spec §4.6).
func spawn(path string, words []string, dir string, vm *vars.Manager, stdin io.Reader, stdout, stderr io.Writer, pgid *int, first bool) (pid int, errCode int, err error) {
	cmd := goexec.Command(path, words[1:]...)
	cmd.Dir = dir
	cmd.Env = vm.Environ()
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	configureProcessGroup(cmd, pgid, first)
	if err := cmd.Start(); err != nil {
		if isExecNotFound(err) {
			return 0, 127, err
		}
		return 0, 126, err
	}
	pid = cmd.Process.Pid
	if first {
		*pgid = pid
	}
	return pid, 0, nil
}

func isExecNotFound(err error) bool {
	return strings.Contains(err.Error(), "no such file") || strings.Contains(err.Error(), "not found")
}
