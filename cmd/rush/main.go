// rush is an interactive POSIX-compatible command shell built on top
// of the rush.sh/rush packages: lexer/parser, word expander, arithmetic
// engine, executor, job manager, and trap engine.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"rush.sh/rush/completion"
	"rush.sh/rush/exec"
)

var (
	command = pflag.StringP("command", "c", "", "execute command and exit")
	norc    = pflag.Bool("norc", false, "skip reading ~/.rushrc on startup")
)

func main() {
	os.Exit(run())
}

func run() int {
	pflag.Parse()
	sh := exec.New()
	wireCompletion(sh)

	if *command != "" {
		sh.RunLine(*command)
		sh.RunExitTrap()
		return sh.LastExit
	}

	if f, ok := sh.Stdin.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		return runPiped(sh)
	}
	return runInteractive(sh)
}

func runPiped(sh *exec.Shell) int {
	data, err := io.ReadAll(sh.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rush: %s\n", err)
		return 1
	}
	sh.RunLine(string(data))
	sh.RunExitTrap()
	return sh.LastExit
}

// runInteractive drives the read-eval-print loop via a line editor,
// persisting history across the session and reloading ~/.rushrc first
// unless --norc was given (grounded on gosh/main.go's runInteractive
// loop, generalized from a raw prompt/parse/run cycle to a readline
// session with history, completion, and signal handling).
func runInteractive(sh *exec.Shell) int {
	if !*norc {
		loadRC(sh)
	}

	histFile := historyPath()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ps1(sh),
		HistoryFile:     histFile,
		AutoComplete:    completionCompleter{sh},
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "rush: %s\n", err)
		return 1
	}
	defer rl.Close()

	// Ctrl+C at the prompt interrupts the line being typed, not the
	// shell process itself; a running foreground job gets its own
	// SIGINT delivery via the job manager's process group, not this
	// signal channel.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		rl.SetPrompt(ps1(sh))
		line, err := rl.Readline()
		switch {
		case err == readline.ErrInterrupt:
			continue
		case err != nil:
			sh.RunExitTrap()
			return sh.LastExit
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		sh.RunLine(completeLine(rl, sh, line))
	}
}

// completeLine handles a statement left incomplete by an open quote or
// a backslash continuation (as needsMore detects them) by re-prompting
// with PS2 and appending further lines, the way an interactive shell
// accepts multi-line input before execution. An unclosed compound
// statement is not detected here and is passed to RunLine as typed.
func completeLine(rl *readline.Instance, sh *exec.Shell, line string) string {
	src := line
	for needsMore(src) {
		rl.SetPrompt(ps2())
		more, err := rl.Readline()
		if err != nil {
			break
		}
		src += "\n" + more
	}
	return src
}

// needsMore is a conservative heuristic: an odd number of unescaped
// single/double quotes, or a trailing backslash, means the statement
// isn't finished yet. The parser itself reports a better answer for
// unterminated keywords/braces, but RunLine only returns an exit code,
// not that detail, so this front-end check stays approximate.
func needsMore(src string) bool {
	if strings.HasSuffix(src, "\\") {
		return true
	}
	var single, double bool
	esc := false
	for _, r := range src {
		if esc {
			esc = false
			continue
		}
		switch r {
		case '\\':
			esc = true
		case '\'':
			if !double {
				single = !single
			}
		case '"':
			if !single {
				double = !double
			}
		}
	}
	return single || double
}

func ps1(sh *exec.Shell) string {
	if v, ok := sh.Vars.Get("PS1"); ok && v.AsString() != "" {
		return v.AsString()
	}
	return filepath.Base(sh.Dir) + "$ "
}

func ps2() string {
	return "> "
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rush_history")
}

// loadRC sources ~/.rushrc into sh before the first prompt, matching
// how bash reads its startup file for an interactive non-login shell.
func loadRC(sh *exec.Shell) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	path := filepath.Join(home, ".rushrc")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	sh.RunLine(string(data))
}

func wireCompletion(sh *exec.Shell) {
	sh.Completion = completion.Sources{
		Commands: completion.NewCommandSource(sh.CommandNames),
		Paths:    completion.NewPathSource(func() string { return sh.Dir }),
		Flags: completion.NewFlagSource(map[string][]string{
			"cd":     {"-L", "-P"},
			"read":   {"-p", "-s", "-r", "-d", "-n", "-t"},
			"export": {"-p"},
			"set":    {"-e", "-u", "-x"},
		}),
	}
}

// completionCompleter adapts completion.Sources to readline's
// AutoCompleter interface, which works in runes over the full line
// rather than completion.Source's word-oriented shape.
type completionCompleter struct {
	sh *exec.Shell
}

func (c completionCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	text := string(line[:pos])
	words := strings.Fields(text)
	wordIndex := len(words) - 1
	partial := ""
	if wordIndex >= 0 && !strings.HasSuffix(text, " ") {
		partial = words[wordIndex]
		words = words[:wordIndex]
	} else {
		wordIndex++
	}
	cands := c.sh.Completion.Complete(words, wordIndex, partial)
	out := make([][]rune, len(cands))
	for i, cand := range cands {
		out[i] = []rune(strings.TrimPrefix(cand, partial))
	}
	return out, len(partial)
}
