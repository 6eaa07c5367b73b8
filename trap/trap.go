// Package trap implements rush's Trap Engine (spec §4.7): parsing
// signal names (numeric signals are not accepted by Set), maintaining
// the TrapRegistry, and dispatching
// pending handlers at safe points. It is grounded on the teacher's
// context-cancellation style in interp/handler.go's DefaultExecHandler
// (a signal arriving mid-command sets a flag the Runner consults
// rather than being handled inline), generalized from "cancel the
// current exec" into full POSIX trap semantics.
package trap

import (
	"fmt"
	"sort"
	"sync"
)

// SignalError is the taxonomy member for a bad signal name, an
// uncatchable signal, or a duplicate trap registration (spec §7).
type SignalError struct{ Msg string }

func (e *SignalError) Error() string { return e.Msg }

// ExitName is the pseudo-signal naming the EXIT trap slot.
const ExitName = "EXIT"

type entry struct {
	command string
	stop    func()
}

// Registry holds at most one handler per signal plus the EXIT
// pseudo-signal slot (spec §3's TrapRegistry invariant). Signal
// handlers never touch Registry state directly; they only flag a
// pending signal, which Poll drains from the main thread.
type Registry struct {
	mu       sync.Mutex
	handlers map[string]*entry
	pending  map[string]bool
	exit     *entry
}

// NewRegistry returns an empty TrapRegistry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]*entry),
		pending:  make(map[string]bool),
	}
}

// Set registers cmd as the handler for name (a signal name, case and
// "SIG"-prefix insensitive, or the literal "EXIT"). An empty cmd
// clears any existing handler (idempotent, spec §4.7). Registering a
// live handler a second time without first clearing it fails
// (FR-006); SIGKILL and SIGSTOP are never admitted.
func (r *Registry) Set(name, cmd string) error {
	cn := canonicalName(name)
	if cn == ExitName {
		return r.setExit(cmd)
	}
	if cn == "KILL" || cn == "STOP" {
		return &SignalError{Msg: fmt.Sprintf("trap: %s: cannot be trapped", name)}
	}
	canon, num, ok := lookupSignal(cn)
	if !ok {
		return &SignalError{Msg: fmt.Sprintf("trap: %s: invalid signal specification", name)}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cmd == "" {
		if e, ok := r.handlers[canon]; ok {
			e.stop()
			delete(r.handlers, canon)
		}
		return nil
	}
	if _, ok := r.handlers[canon]; ok {
		return &SignalError{Msg: fmt.Sprintf("trap: %s: trap already set, clear it first", name)}
	}
	e := &entry{command: cmd}
	e.stop = notify(num, func() {
		r.mu.Lock()
		r.pending[canon] = true
		r.mu.Unlock()
	})
	r.handlers[canon] = e
	return nil
}

func (r *Registry) setExit(cmd string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cmd == "" {
		r.exit = nil
		return nil
	}
	if r.exit != nil {
		return &SignalError{Msg: "trap: EXIT: trap already set, clear it first"}
	}
	r.exit = &entry{command: cmd}
	return nil
}

// ExitCommand returns the registered EXIT handler command, if any.
func (r *Registry) ExitCommand() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exit == nil {
		return "", false
	}
	return r.exit.command, true
}

// Poll drains every pending signal, returning (name, command) pairs in
// deterministic order, meant to be called at the next stable point
// (just before printing the next prompt, spec §4.7).
func (r *Registry) Poll() []struct{ Name, Command string } {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil
	}
	var names []string
	for n := range r.pending {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]struct{ Name, Command string }, 0, len(names))
	for _, n := range names {
		delete(r.pending, n)
		if e, ok := r.handlers[n]; ok {
			out = append(out, struct{ Name, Command string }{n, e.command})
		}
	}
	return out
}

// List returns every registered handler (signal traps, then EXIT if
// set), sorted by signal name, for the `trap` builtin's listing format
// (spec §8 scenario 5: `trap -- 'cmd' SIGNAME`).
func (r *Registry) List() []struct{ Name, Command string } {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]struct{ Name, Command string }, 0, len(names)+1)
	for _, n := range names {
		out = append(out, struct{ Name, Command string }{n, r.handlers[n].command})
	}
	if r.exit != nil {
		out = append(out, struct{ Name, Command string }{ExitName, r.exit.command})
	}
	return out
}
