// Package exec implements rush's Executor (spec §4.5): it walks the
// CompoundStatement tree the parser produces, expands words, dispatches
// builtins/functions/external commands, wires pipelines, and tracks
// exit codes. It is grounded on the teacher's interp.Runner dispatch
// loop (interp/runner.go's stmt/cmd/stmts triad and its os.Pipe +
// goroutine pipeline wiring), generalized to spawn real OS process
// groups for job control instead of interp's in-process-only subshells.
package exec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"rush.sh/rush/ast"
	"rush.sh/rush/completion"
	"rush.sh/rush/expand"
	"rush.sh/rush/job"
	"rush.sh/rush/syntax"
	"rush.sh/rush/trap"
	"rush.sh/rush/vars"
)

// Shell is the Executor's runtime state (spec §3's top-level owner of
// everything: variables, jobs, traps, functions).
type Shell struct {
	Vars  *vars.Manager
	Jobs  *job.Manager
	Traps *trap.Registry

	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	LastExit int
	Args     []string // positional params; empty at top level, bound to the arguments while a function runs

	funcs   map[string]*ast.FuncDecl
	aliases map[string]string

	// History records each line RunLine executes, in order, for the
	// `history` builtin. It lives only as long as the Shell; cmd/rush
	// keeps its own line-editor history file separately.
	History []string

	// Completion sources are wired by cmd/rush; the core never
	// implements completion matching itself (spec §1), it only
	// exposes CommandNames for a completion.Source to query.
	Completion completion.Sources
}

// CommandNames returns every name runBuiltin/callFunction could
// currently dispatch to: builtins, declared functions, and every
// non-directory entry of each PATH directory, read afresh on each call
// (no executable-bit check) — for wiring a completion.NewCommandSource
// in cmd/rush.
func (s *Shell) CommandNames() []string {
	names := make([]string, 0, len(builtinNames)+len(s.funcs))
	for n := range builtinNames {
		names = append(names, n)
	}
	for n := range s.funcs {
		names = append(names, n)
	}
	pathVar, _ := s.Vars.Get("PATH")
	for _, dir := range filepath.SplitList(pathVar.AsString()) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	return names
}

// isTerminal backs test/[[ 's -t fd operator (spec §4.9): fd must name
// one of this Shell's own standard streams, and that stream must be
// backed by a real *os.File connected to a terminal, not a pipe/buffer.
func (s *Shell) isTerminal(fd int) bool {
	var f *os.File
	switch fd {
	case 0:
		f, _ = s.Stdin.(*os.File)
	case 1:
		f, _ = s.Stdout.(*os.File)
	case 2:
		f, _ = s.Stderr.(*os.File)
	}
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// New returns a freshly initialized Shell: a global variable scope
// seeded from the process environment, an empty job table, and an
// empty trap registry.
func New() *Shell {
	dir, _ := os.Getwd()
	return &Shell{
		Vars:    vars.NewManager(),
		Jobs:    job.NewManager(ttyFd()),
		Traps:   trap.NewRegistry(),
		Dir:     dir,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		funcs:   make(map[string]*ast.FuncDecl),
		aliases: make(map[string]string),
	}
}

func ttyFd() int {
	if f, ok := os.Stdin.(*os.File); ok {
		return int(f.Fd())
	}
	return -1
}

func (s *Shell) errf(format string, a ...any) {
	fmt.Fprintf(s.Stderr, "rush: "+format+"\n", a...)
}

// flowKind distinguishes a normal fall-through return from the
// tagged-unwind kinds break/continue/return thread through nested
// compound statements (spec §9: "coroutine-like control flow").
type flowKind int

const (
	flowNormal flowKind = iota
	flowBreak
	flowContinue
	flowReturn
	flowExit
)

type flow struct {
	kind flowKind
	n    int // remaining levels to unwind, for break/continue
	code int // exit code, for return/exit
}

// RunLine parses and executes one line of input (or a complete
// continued statement), updating LastExit and servicing any pending
// trap before returning.
func (s *Shell) RunLine(src string) {
	if strings.TrimSpace(src) != "" {
		s.History = append(s.History, src)
	}
	file, err := syntax.NewParser().Parse(src, "rush")
	if err != nil {
		s.errf("syntax error: %s", err)
		s.LastExit = 2
		return
	}
	f := s.execList(file.Stmts)
	if f.kind == flowExit {
		s.LastExit = f.code
	}
	s.Jobs.ReapBackground()
	s.DispatchTraps()
}

// DispatchTraps runs every pending trap handler at the next stable
// point (spec §4.7), e.g. just before printing the next prompt.
func (s *Shell) DispatchTraps() {
	for _, p := range s.Traps.Poll() {
		s.RunLine(p.Command)
	}
}

// RunExitTrap executes the EXIT pseudo-signal's handler exactly once,
// if one is registered, before the process terminates (spec §4.7).
func (s *Shell) RunExitTrap() {
	if cmd, ok := s.Traps.ExitCommand(); ok {
		s.RunLine(cmd)
	}
}

func (s *Shell) execList(list *ast.CompoundList) flow {
	for _, item := range list.Stmts {
		if f := s.execAndOr(item); f.kind != flowNormal {
			return f
		}
	}
	return flow{}
}

func (s *Shell) execAndOr(a *ast.AndOrList) flow {
	if f := s.execPipeline(a.First); f.kind != flowNormal {
		return f
	}
	code := s.LastExit
	for _, tail := range a.Rest {
		run := (tail.Op == ast.AndOrAnd) == (code == 0)
		if !run {
			continue
		}
		if f := s.execPipeline(tail.Pipeline); f.kind != flowNormal {
			return f
		}
		code = s.LastExit
	}
	return flow{}
}

// fork returns a Shell sharing the job table, trap registry, and
// directory, but with an isolated variable table and function/alias
// sets, exactly like a POSIX subshell or pipeline segment (spec §4.5:
// "Subshell ... executes in a fresh variable-scope frame that is
// discarded on exit").
func (s *Shell) fork() *Shell {
	funcs := make(map[string]*ast.FuncDecl, len(s.funcs))
	for k, v := range s.funcs {
		funcs[k] = v
	}
	aliases := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		aliases[k] = v
	}
	return &Shell{
		Vars:       s.Vars.Fork(),
		Jobs:       s.Jobs,
		Traps:      s.Traps,
		Dir:        s.Dir,
		Stdin:      s.Stdin,
		Stdout:     s.Stdout,
		Stderr:     s.Stderr,
		Args:       s.Args,
		funcs:      funcs,
		aliases:    aliases,
		Completion: s.Completion,
	}
}

// execPipeline runs one or more commands connected by pipes (spec
// §4.5). A single foreground command in a pipeline of length 1 takes a
// direct path so builtins/functions can mutate *this* Shell's state
// (no subshell isolation needed when there's nothing to pipe into or
// out of).
func (s *Shell) execPipeline(p *ast.Pipeline) flow {
	if len(p.Commands) == 1 && !p.Background {
		f, code := s.execCommand(p.Commands[0])
		if f.kind != flowNormal {
			return f
		}
		if p.Negate {
			code = boolToCode(code != 0)
		}
		s.LastExit = code
		return flow{}
	}
	return s.execMulti(p)
}

func boolToCode(b bool) int {
	if b {
		return 0
	}
	return 1
}

type pipeSeg struct {
	r, w *os.File
}

// segResult is what one pipeline element reports back once it is
// started (external) or finished (in-process).
type segResult struct {
	external bool
	pid      int // valid when external
	code     int // valid when !external; filled in from the job's wait once external
	flow     flow
}

// execMulti runs a pipeline of 2+ commands, or a single backgrounded
// command, by wiring os.Pipe() between segments (grounded on
// interp/runner.go's BinaryCmd/Pipe case: one os.Pipe plus a goroutine
// per side, generalized to N segments). External commands are spawned
// synchronously, in segment order, so the process group's pgid is
// known deterministically before later segments start; builtin,
// function, and compound segments run concurrently in their own
// goroutine since they may block on I/O through the pipe.
func (s *Shell) execMulti(p *ast.Pipeline) flow {
	segs := p.Commands
	pipes := make([]pipeSeg, len(segs)-1)
	for i := range pipes {
		pr, pw, err := os.Pipe()
		if err != nil {
			s.errf("pipe: %s", err)
			s.LastExit = 1
			return flow{}
		}
		pipes[i] = pipeSeg{r: pr, w: pw}
	}

	results := make([]segResult, len(segs))
	pgid := new(int)
	first := true
	var g errgroup.Group

	for i, cmd := range segs {
		var in io.Reader = s.Stdin
		if i > 0 {
			in = pipes[i-1].r
		}
		var out io.Writer = s.Stdout
		if i < len(segs)-1 {
			out = pipes[i].w
		}
		sub := s.fork()
		sub.Stdin, sub.Stdout = in, out

		outcome := sub.startSegment(cmd, pgid, first)
		switch {
		case outcome.external:
			results[i] = segResult{external: true, pid: outcome.pid}
			first = false
			closeSegEnds(pipes, i, len(segs))
		case outcome.inProcess:
			i, sub, outcome := i, sub, outcome
			g.Go(func() error {
				code, f := sub.execSegmentInProcess(outcome.cmd, outcome.prep)
				results[i] = segResult{code: code, flow: f}
				closeSegEnds(pipes, i, len(segs))
				return nil
			})
		default:
			results[i] = segResult{code: outcome.code}
			closeSegEnds(pipes, i, len(segs))
		}
	}

	if p.Background {
		pids := extPidsOf(results)
		if len(pids) > 0 {
			j := s.Jobs.Register(*pgid, pids, p.Commands[0].Raw, false)
			fmt.Fprintf(s.Stdout, "[%d] %d\n", j.ID, pids[len(pids)-1])
		}
		go g.Wait()
		s.LastExit = 0
		return flow{}
	}

	pids := extPidsOf(results)
	var extCodes []int
	if len(pids) > 0 {
		j := s.Jobs.Register(*pgid, pids, "", true)
		var err error
		extCodes, err = s.Jobs.WaitForeground(j)
		if err != nil {
			s.errf("%s", err)
		}
	}
	g.Wait()

	ei := 0
	var last int
	for i, r := range results {
		if r.external {
			if ei < len(extCodes) {
				results[i].code = extCodes[ei]
			}
			ei++
		}
	}
	for _, r := range results {
		if r.flow.kind != flowNormal {
			return r.flow
		}
	}
	last = results[len(results)-1].code
	if p.Negate {
		last = boolToCode(last != 0)
	}
	s.LastExit = last
	return flow{}
}

func closeSegEnds(pipes []pipeSeg, i, n int) {
	if i > 0 {
		pipes[i-1].r.Close()
	}
	if i < n-1 {
		pipes[i].w.Close()
	}
}

func extPidsOf(results []segResult) []int {
	var pids []int
	for _, r := range results {
		if r.external {
			pids = append(pids, r.pid)
		}
	}
	return pids
}

// preparedSeg is the one-time result of expanding a segment's words
// and applying its redirections, shared between the "is it external"
// decision and whichever of spawn/execSegmentInProcess actually runs
// it, so neither assignments nor redirections are ever applied twice.
type preparedSeg struct {
	words   []string
	restore func()
}

func (s *Shell) prepareSegment(cmd *ast.Command) (preparedSeg, bool) {
	words, _, err := s.expandCommandWords(cmd)
	if err != nil {
		s.errf("%s", err)
		return preparedSeg{}, false
	}
	words = s.expandAlias(words)
	restore, err := s.applyRedirections(cmd.Redirs)
	if err != nil {
		s.errf("%s", err)
		return preparedSeg{}, false
	}
	return preparedSeg{words: words, restore: restore}, true
}

// expandAlias substitutes a leading alias name with its expansion
// (split on whitespace), one level only: the alias command's own
// first word is never itself re-checked against the alias table,
// matching the common "alias ll='ls -l'" case without risking
// infinite recursion on a self-referential alias.
func (s *Shell) expandAlias(words []string) []string {
	if len(words) == 0 {
		return words
	}
	val, ok := s.aliases[words[0]]
	if !ok {
		return words
	}
	return append(strings.Fields(val), words[1:]...)
}

// segOutcome is how startSegment reports what happened: a spawned
// external process (external=true, pid set), a builtin/function/
// compound to run in-process (external=false, inProcess=true), or a
// failure already reported to stderr whose code is the segment's
// final exit status (neither flag set).
type segOutcome struct {
	external  bool
	pid       int
	inProcess bool
	cmd       *ast.Command
	prep      preparedSeg
	code      int
}

// startSegment decides and, for an external command, immediately
// starts cmd. Builtins, functions, and compound statements are left
// for the caller to run (possibly in a goroutine, to avoid a pipeline
// deadlock) via execSegmentInProcess.
func (s *Shell) startSegment(cmd *ast.Command, pgid *int, first bool) segOutcome {
	if cmd.Compound != nil {
		return segOutcome{inProcess: true, cmd: cmd}
	}
	p, ok := s.prepareSegment(cmd)
	if !ok {
		return segOutcome{code: 1}
	}
	if len(p.words) == 0 {
		p.restore()
		return segOutcome{code: 0}
	}
	if _, isFn := s.funcs[p.words[0]]; isFn || IsBuiltin(p.words[0]) {
		return segOutcome{inProcess: true, cmd: cmd, prep: p}
	}
	defer p.restore()
	path, err := lookPath(s.Dir, s.Vars, p.words[0])
	if err != nil {
		s.errf("%s: command not found", p.words[0])
		return segOutcome{code: 127}
	}
	pid, errCode, err := spawn(path, p.words, s.Dir, s.Vars, s.Stdin, s.Stdout, s.Stderr, pgid, first)
	if err != nil {
		s.errf("%s: %s", p.words[0], err)
		return segOutcome{code: errCode}
	}
	return segOutcome{external: true, pid: pid}
}

// execSegmentInProcess runs a builtin, function call, or compound
// statement as one pipeline element, given the words/redirections
// startSegment already prepared (prep.words is empty/unused
// for a compound statement, which carries its own nested redirections).
func (s *Shell) execSegmentInProcess(cmd *ast.Command, prep preparedSeg) (code int, f flow) {
	if cmd.Compound != nil {
		restore, err := s.applyRedirections(cmd.Redirs)
		if err != nil {
			s.errf("%s", err)
			return 1, flow{}
		}
		defer restore()
		f = s.execCompound(cmd.Compound)
		return s.LastExit, f
	}
	defer prep.restore()
	if len(prep.words) == 0 {
		return 0, flow{}
	}
	if fd, ok := s.funcs[prep.words[0]]; ok {
		c, f := s.callFunction(fd, prep.words[1:])
		return c, f
	}
	return s.runBuiltin(prep.words[0], prep.words[1:])
}

// expandCommandWords performs leading assignments (spec §4.5: these
// precede a simple command and, if the command is empty, persist as
// plain assignments) and expands the command's words into argv.
func (s *Shell) expandCommandWords(cmd *ast.Command) (words []string, assignedOnly bool, err error) {
	ex := s.expander()
	for _, as := range cmd.Assigns {
		if err := s.applyAssign(as, ex); err != nil {
			return nil, false, err
		}
	}
	if len(cmd.Words) == 0 {
		return nil, true, nil
	}
	words, err = ex.ExpandWords(cmd.Words)
	return words, false, err
}

func (s *Shell) applyAssign(as *ast.Assign, ex *expand.Expander) error {
	if as.Array != nil {
		items, err := ex.ExpandWords(as.Array)
		if err != nil {
			return err
		}
		return s.Vars.SetArray(as.Name, items)
	}
	val, err := ex.Literal(as.Value)
	if err != nil {
		return err
	}
	if as.Append {
		return s.Vars.Append(as.Name, val)
	}
	return s.Vars.Set(as.Name, val)
}

// expander returns a freshly wired Expander bound to this Shell's
// variables and command-substitution support (spec §4.3).
func (s *Shell) expander() *expand.Expander {
	return &expand.Expander{
		Vars:     s.Vars,
		ExitCode: s.LastExit,
		Args:     s.Args,
		CmdSubst: s.runCmdSubst,
	}
}

// runCmdSubst executes the inner pipeline of a $( ... ) in a forked
// subshell and captures its stdout, trimming trailing newlines (spec
// §4.3 step 4).
func (s *Shell) runCmdSubst(body *ast.CompoundStatement) (string, error) {
	sub := s.fork()
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}
	sub.Stdout = w
	done := make(chan struct{})
	var out []byte
	go func() {
		out, _ = io.ReadAll(r)
		close(done)
	}()
	sub.execCompound(body)
	w.Close()
	<-done
	r.Close()
	return strings.TrimRight(string(out), "\n"), nil
}

// execCommand runs a single, non-piped pipeline element in place
// (Shell state mutations are visible to the caller), used by the
// execPipeline fast path for length-1, non-background pipelines.
func (s *Shell) execCommand(cmd *ast.Command) (flow, int) {
	if cmd.Compound != nil {
		restore, err := s.applyRedirections(cmd.Redirs)
		if err != nil {
			s.errf("%s", err)
			return flow{}, 1
		}
		defer restore()
		f := s.execCompound(cmd.Compound)
		return f, s.LastExit
	}
	words, _, err := s.expandCommandWords(cmd)
	if err != nil {
		s.errf("%s", err)
		return flow{}, 1
	}
	words = s.expandAlias(words)
	restore, err := s.applyRedirections(cmd.Redirs)
	if err != nil {
		s.errf("%s", err)
		return flow{}, 1
	}
	defer restore()
	if len(words) == 0 {
		return flow{}, 0
	}
	if fd, ok := s.funcs[words[0]]; ok {
		code, f := s.callFunction(fd, words[1:])
		return f, code
	}
	if IsBuiltin(words[0]) {
		code, f := s.runBuiltin(words[0], words[1:])
		return f, code
	}
	path, err := lookPath(s.Dir, s.Vars, words[0])
	if err != nil {
		s.errf("%s: command not found", words[0])
		return flow{}, 127
	}
	pgid := new(int)
	pid, errCode, err := spawn(path, words, s.Dir, s.Vars, s.Stdin, s.Stdout, s.Stderr, pgid, true)
	if err != nil {
		s.errf("%s: %s", words[0], err)
		return flow{}, errCode
	}
	j := s.Jobs.Register(pid, []int{pid}, cmd.Raw, true)
	codes, err := s.Jobs.WaitForeground(j)
	if err != nil {
		s.errf("%s", err)
		return flow{}, 1
	}
	if len(codes) == 0 {
		return flow{}, 0
	}
	return flow{}, codes[0]
}

// callFunction invokes a declared function: push a scope, bind
// positional args, run the body, pop the scope, and absorb a Return
// unwind into a plain exit code (spec §4.5 step 2).
func (s *Shell) callFunction(fd *ast.FuncDecl, args []string) (int, flow) {
	s.Vars.PushScope()
	prevArgs := s.Args
	s.Args = args
	f := s.execList(fd.Body)
	s.Args = prevArgs
	s.Vars.PopScope()
	switch f.kind {
	case flowReturn:
		return f.code, flow{}
	case flowExit:
		return f.code, f
	case flowBreak, flowContinue:
		// break/continue escaping a function body is a user error in
		// bash too; treat as if the function simply returned.
		return s.LastExit, flow{}
	}
	return s.LastExit, flow{}
}

// execCompound dispatches one CompoundStatement (spec §4.2's grammar
// productions): simple pipelines, if/for/while/until/case, subshells,
// groups, and function definitions.
func (s *Shell) execCompound(cs *ast.CompoundStatement) flow {
	switch {
	case cs.Simple != nil:
		return s.execPipeline(cs.Simple)
	case cs.List != nil:
		return s.execList(cs.List)
	case cs.If != nil:
		return s.execIf(cs.If)
	case cs.For != nil:
		return s.execFor(cs.For)
	case cs.While != nil:
		return s.execWhile(cs.While, false)
	case cs.Until != nil:
		return s.execWhile(cs.Until, true)
	case cs.Case != nil:
		return s.execCase(cs.Case)
	case cs.Subshell != nil:
		sub := s.fork()
		f := sub.execList(cs.Subshell)
		s.LastExit = sub.LastExit
		return f
	case cs.Group != nil:
		return s.execList(cs.Group)
	case cs.FuncDef != nil:
		s.funcs[cs.FuncDef.Name] = cs.FuncDef
		s.LastExit = 0
		return flow{}
	}
	return flow{}
}

func (s *Shell) execIf(c *ast.IfClause) flow {
	if f := s.execList(c.Cond); f.kind != flowNormal {
		return f
	}
	if s.LastExit == 0 {
		return s.execList(c.Then)
	}
	for _, elif := range c.Elifs {
		if f := s.execList(elif.Cond); f.kind != flowNormal {
			return f
		}
		if s.LastExit == 0 {
			return s.execList(elif.Then)
		}
	}
	if c.Else != nil {
		return s.execList(c.Else)
	}
	s.LastExit = 0
	return flow{}
}

func (s *Shell) execFor(c *ast.ForClause) flow {
	ex := s.expander()
	words, err := ex.ExpandWords(c.Words)
	if err != nil {
		s.errf("%s", err)
		s.LastExit = 1
		return flow{}
	}
	s.LastExit = 0
	for _, w := range words {
		if err := s.Vars.Set(c.Name, w); err != nil {
			s.errf("%s", err)
			return flow{}
		}
		f := s.execList(c.Body)
		switch f.kind {
		case flowBreak:
			if f.n > 1 {
				return flow{kind: flowBreak, n: f.n - 1}
			}
			return flow{}
		case flowContinue:
			if f.n > 1 {
				return flow{kind: flowContinue, n: f.n - 1}
			}
			continue
		case flowReturn, flowExit:
			return f
		}
	}
	return flow{}
}

func (s *Shell) execWhile(c *ast.WhileLoop, until bool) flow {
	s.LastExit = 0
	for {
		f := s.execList(c.Cond)
		if f.kind != flowNormal {
			return f
		}
		cond := s.LastExit == 0
		if until {
			cond = !cond
		}
		if !cond {
			break
		}
		f = s.execList(c.Body)
		switch f.kind {
		case flowBreak:
			if f.n > 1 {
				return flow{kind: flowBreak, n: f.n - 1}
			}
			return flow{}
		case flowContinue:
			if f.n > 1 {
				return flow{kind: flowContinue, n: f.n - 1}
			}
			continue
		case flowReturn, flowExit:
			return f
		}
	}
	return flow{}
}

func (s *Shell) execCase(c *ast.CaseClause) flow {
	ex := s.expander()
	subject, err := ex.Literal(c.Subject)
	if err != nil {
		s.errf("%s", err)
		s.LastExit = 1
		return flow{}
	}
	for _, arm := range c.Arms {
		for _, patWord := range arm.Patterns {
			pat, err := ex.Literal(patWord)
			if err != nil {
				s.errf("%s", err)
				s.LastExit = 1
				return flow{}
			}
			if globMatch(pat, subject) {
				return s.execList(arm.Body)
			}
		}
	}
	s.LastExit = 0
	return flow{}
}
