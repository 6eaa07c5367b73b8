// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package expand implements rush's word expander (spec §4.3): tilde,
// parameter/variable, arithmetic and command substitution, IFS word
// splitting, and pathname globbing, applied to a parsed Word in that
// order.
package expand

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"rush.sh/rush/ast"
	"rush.sh/rush/vars"
)

// ExpansionError is the taxonomy member for a malformed expansion
// (spec §7): bad array index, unterminated construct, and so on.
type ExpansionError struct {
	Msg string
}

func (e *ExpansionError) Error() string { return e.Msg }

// Expander turns parsed Words into the argv the Executor hands to
// exec, per spec §4.3. It is re-usable across commands; callers set
// CmdSubst (and the ambient ExitCode/Args fields) once per dispatch,
// since those values change between commands.
type Expander struct {
	Vars *vars.Manager

	// CmdSubst runs the inner pipeline of a $( ... ) and returns its
	// captured stdout with trailing newlines trimmed. The Executor
	// supplies this, since a core Expander cannot run processes.
	CmdSubst func(*ast.CompoundStatement) (string, error)

	// ExitCode backs $?; Args backs $1..$9 and $# (empty at top level,
	// the call's arguments inside a function). $$ is the process id
	// from os.Getpid.
	ExitCode int
	Args     []string
}

func defaultIFS() string { return " \t\n" }

func (e *Expander) ifs() string {
	if v, ok := e.Vars.Get("IFS"); ok {
		return v.AsString()
	}
	return defaultIFS()
}

func isIFSRune(ifs string, r rune) bool {
	for _, c := range ifs {
		if c == r {
			return true
		}
	}
	return false
}

// ExpandWords expands every word in words, in order, concatenating
// each word's resulting fields into one flat argv (spec §4.3).
func (e *Expander) ExpandWords(words []ast.Word) ([]string, error) {
	var out []string
	for _, w := range words {
		fields, err := e.ExpandWord(w)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return out, nil
}

// ExpandWord runs all six expansion phases on one Word and returns the
// resulting fields (zero or more, depending on splitting and ${..[@]}
// expansion).
func (e *Expander) ExpandWord(w ast.Word) ([]string, error) {
	b := &fieldBuilder{ifs: e.ifs()}
	for i, part := range w.Parts {
		atWordStart := i == 0
		if err := e.expandPart(part, atWordStart, false, b); err != nil {
			return nil, err
		}
	}
	b.flush()
	return e.globFields(b.fields), nil
}

// Literal expands w and joins the result back into a single string
// without word-splitting or globbing, for contexts that take one
// logical value regardless of embedded whitespace: case subjects,
// [[ ]] operands, redirection targets, here-string-like inputs.
func (e *Expander) Literal(w ast.Word) (string, error) {
	var sb strings.Builder
	for i, part := range w.Parts {
		s, _, err := e.expandPartText(part, i == 0)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// fieldAcc accumulates one output field as it is built: its literal
// text, and a parallel glob-pattern rendering in which protected
// (quoted) runs have been escaped so they match literally.
type fieldAcc struct {
	literal       strings.Builder
	glob          strings.Builder
	hasUnprotected bool
}

type fieldBuilder struct {
	ifs    string
	cur    fieldAcc
	active bool
	fields []fieldAcc
}

func (b *fieldBuilder) markActive() { b.active = true }

func (b *fieldBuilder) appendProtected(s string) {
	b.markActive()
	b.cur.literal.WriteString(s)
	b.cur.glob.WriteString(quoteMeta(s))
}

// appendUnprotected appends s, splitting on IFS as it goes: an IFS
// run outside of any protected text ends the current field.
func (b *fieldBuilder) appendUnprotected(s string) {
	for _, r := range s {
		if isIFSRune(b.ifs, r) {
			if b.active {
				b.flush()
			}
			continue
		}
		b.markActive()
		b.cur.hasUnprotected = true
		b.cur.literal.WriteRune(r)
		b.cur.glob.WriteRune(r)
	}
}

// breakField forces a field boundary regardless of IFS or protection,
// used between elements of an expanded array (spec's "${arr[@]}
// splits into one word per array element regardless of quoting").
func (b *fieldBuilder) breakField() {
	b.flush()
}

func (b *fieldBuilder) flush() {
	if !b.active {
		return
	}
	b.fields = append(b.fields, b.cur)
	b.cur = fieldAcc{}
	b.active = false
}

func quoteMeta(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// expandPart expands one WordPart into the builder. inDoubleQuotes
// marks this part as occurring directly inside a DblQuoted (needed so
// a nested ParamExp knows whether its own At/Star splitting rule
// applies in quoted or unquoted mode).
func (e *Expander) expandPart(part ast.WordPart, atWordStart, inDoubleQuotes bool, b *fieldBuilder) error {
	switch p := part.(type) {
	case *ast.Lit:
		if inDoubleQuotes {
			b.appendProtected(p.Value)
		} else {
			b.appendUnprotected(p.Value)
		}
		return nil
	case *ast.SglQuoted:
		b.appendProtected(p.Value)
		return nil
	case *ast.DblQuoted:
		if len(p.Parts) == 1 {
			if pe, ok := p.Parts[0].(*ast.ParamExp); ok && (pe.At || pe.Star) && !pe.Length {
				return e.expandArrayParam(pe, true, b)
			}
		}
		if len(p.Parts) == 0 {
			b.appendProtected("")
			return nil
		}
		for _, sub := range p.Parts {
			if err := e.expandPart(sub, false, true, b); err != nil {
				return err
			}
		}
		return nil
	case *ast.Tilde:
		s, err := e.expandTilde(p)
		if err != nil {
			return err
		}
		b.appendProtected(s) // tilde result is never re-split or globbed
		return nil
	case *ast.ParamExp:
		if (p.At || p.Star) && !p.Length {
			return e.expandArrayParam(p, inDoubleQuotes, b)
		}
		s, err := e.expandParam(p)
		if err != nil {
			return err
		}
		if inDoubleQuotes {
			b.appendProtected(s)
		} else {
			b.appendUnprotected(s)
		}
		return nil
	case *ast.ArithmExp:
		s, err := e.expandArithm(p)
		if err != nil {
			return err
		}
		if inDoubleQuotes {
			b.appendProtected(s)
		} else {
			b.appendUnprotected(s)
		}
		return nil
	case *ast.CmdSubst:
		if e.CmdSubst == nil {
			return &ExpansionError{Msg: "command substitution is not available in this context"}
		}
		s, err := e.CmdSubst(p.Stmts)
		if err != nil {
			return err
		}
		if inDoubleQuotes {
			b.appendProtected(s)
		} else {
			b.appendUnprotected(s)
		}
		return nil
	default:
		return &ExpansionError{Msg: fmt.Sprintf("unsupported word part %T", p)}
	}
}

// expandArrayParam expands ${arr[@]} / ${arr[*]}. Unquoted @, quoted
// or unquoted *, and quoted @ each have a distinct splitting rule
// (spec §4.3 step 5).
func (e *Expander) expandArrayParam(pe *ast.ParamExp, quoted bool, b *fieldBuilder) error {
	items := e.Vars.GetArray(pe.Name)
	if pe.Star {
		joined := strings.Join(items, e.ifsJoinChar())
		if quoted {
			b.appendProtected(joined)
		} else {
			b.appendUnprotected(joined)
		}
		return nil
	}
	// @ : one field per element, regardless of quoting.
	for i, item := range items {
		if i > 0 {
			b.breakField()
		}
		if quoted {
			b.appendProtected(item)
		} else {
			b.appendUnprotected(item)
		}
	}
	if len(items) == 0 {
		// still establishes an (empty) field boundary per bash when quoted.
		if quoted {
			b.appendProtected("")
		}
	}
	return nil
}

func (e *Expander) ifsJoinChar() string {
	ifs := e.ifs()
	if ifs == "" {
		return ""
	}
	return string(ifs[0])
}

// expandPartText is Literal's non-splitting single-part expander; the
// quoted flag it returns is unused by callers today but documents
// which rule would apply if a caller wanted to re-split later.
func (e *Expander) expandPartText(part ast.WordPart, atWordStart bool) (string, bool, error) {
	switch p := part.(type) {
	case *ast.Lit:
		return p.Value, false, nil
	case *ast.SglQuoted:
		return p.Value, true, nil
	case *ast.DblQuoted:
		var sb strings.Builder
		for _, sub := range p.Parts {
			s, _, err := e.expandPartText(sub, false)
			if err != nil {
				return "", true, err
			}
			sb.WriteString(s)
		}
		return sb.String(), true, nil
	case *ast.Tilde:
		s, err := e.expandTilde(p)
		return s, true, err
	case *ast.ParamExp:
		if (p.At || p.Star) && !p.Length {
			items := e.Vars.GetArray(p.Name)
			sep := " "
			if p.Star {
				sep = e.ifsJoinChar()
			}
			return strings.Join(items, sep), false, nil
		}
		s, err := e.expandParam(p)
		return s, false, err
	case *ast.ArithmExp:
		s, err := e.expandArithm(p)
		return s, false, err
	case *ast.CmdSubst:
		if e.CmdSubst == nil {
			return "", false, &ExpansionError{Msg: "command substitution is not available in this context"}
		}
		s, err := e.CmdSubst(p.Stmts)
		return s, false, err
	default:
		return "", false, &ExpansionError{Msg: fmt.Sprintf("unsupported word part %T", p)}
	}
}

// expandTilde resolves ~, ~+, ~-, ~user (spec §4.3 step 1).
func (e *Expander) expandTilde(t *ast.Tilde) (string, error) {
	switch t.User {
	case "":
		if home, ok := e.Vars.Get("HOME"); ok && home.AsString() != "" {
			return home.AsString(), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return home, nil
		}
		return "~", nil
	case "+":
		if pwd, ok := e.Vars.Get("PWD"); ok {
			return pwd.AsString(), nil
		}
		return "~+", nil
	case "-":
		if old, ok := e.Vars.Get("OLDPWD"); ok {
			return old.AsString(), nil
		}
		return "~-", nil
	default:
		u, err := user.Lookup(t.User)
		if err != nil {
			return "~" + t.User, nil
		}
		return u.HomeDir, nil
	}
}

// expandParam resolves a scalar/special parameter (spec §4.3 step 2),
// then applies any ${name<op>word} operator (§4.3 step 2's
// default/assign/error/alternate family).
func (e *Expander) expandParam(p *ast.ParamExp) (string, error) {
	if p.Length {
		if p.Index.Parts != nil || p.At || p.Star {
			return strconv.Itoa(len(e.Vars.GetArray(p.Name))), nil
		}
		v, _ := e.Vars.Get(p.Name)
		return strconv.Itoa(len(v.AsString())), nil
	}
	if p.Index.Parts != nil {
		return e.expandParamIndexed(p)
	}
	val, set := e.paramValue(p)
	if p.Op == "" {
		return val, nil
	}
	return e.applyParamOp(p, val, set)
}

// paramValue resolves the raw value of a scalar/special parameter
// without applying any ${name<op>word} operator, and reports whether
// it is set at all (a distinct question from "is it empty", needed by
// the colon-prefixed operator forms).
func (e *Expander) paramValue(p *ast.ParamExp) (val string, set bool) {
	switch p.Name {
	case "$":
		return strconv.Itoa(os.Getpid()), true
	case "?":
		return strconv.Itoa(e.ExitCode), true
	case "0":
		return "rush", true
	case "#":
		return strconv.Itoa(len(e.Args)), true
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(p.Name[0] - '1')
		if i < len(e.Args) {
			return e.Args[i], true
		}
		return "", false
	}
	v, ok := e.Vars.Get(p.Name)
	if !ok {
		return "", false
	}
	return v.AsString(), true
}

// applyParamOp implements the eight ${name<op>word} forms. The
// colon-prefixed variants (":-", ":=", ":?", ":+") also trigger on an
// empty-but-set value; the bare forms only trigger when entirely
// unset.
func (e *Expander) applyParamOp(p *ast.ParamExp, val string, set bool) (string, error) {
	colon := strings.HasPrefix(p.Op, ":")
	trigger := !set || (colon && val == "")
	switch strings.TrimPrefix(p.Op, ":") {
	case "-":
		if trigger {
			return e.Literal(p.Arg)
		}
		return val, nil
	case "=":
		if trigger {
			word, err := e.Literal(p.Arg)
			if err != nil {
				return "", err
			}
			if err := e.Vars.Set(p.Name, word); err != nil {
				return "", &ExpansionError{Msg: err.Error()}
			}
			return word, nil
		}
		return val, nil
	case "?":
		if trigger {
			msg, err := e.Literal(p.Arg)
			if err != nil {
				return "", err
			}
			if msg == "" {
				msg = "parameter null or not set"
			}
			return "", &ExpansionError{Msg: fmt.Sprintf("%s: %s", p.Name, msg)}
		}
		return val, nil
	case "+":
		if trigger {
			return "", nil
		}
		return e.Literal(p.Arg)
	}
	return val, nil
}

func (e *Expander) expandParamIndexed(p *ast.ParamExp) (string, error) {
	idxText, err := e.Literal(p.Index)
	if err != nil {
		return "", err
	}
	x, err := parseArithmFn(idxText)
	if err != nil {
		return "", &ExpansionError{Msg: "bad array index: " + err.Error()}
	}
	n, err := Arithm(e.Vars, x)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", &ExpansionError{Msg: fmt.Sprintf("%s: negative array index", p.Name)}
	}
	items := e.Vars.GetArray(p.Name)
	if int(n) >= len(items) {
		return "", nil
	}
	return items[n], nil
}

// expandArithm resolves $(( expr )) (spec §4.3 step 3).
func (e *Expander) expandArithm(a *ast.ArithmExp) (string, error) {
	n, err := Arithm(e.Vars, a.X)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

// parseArithmFn is set by the syntax package via RegisterArithmParser
// to avoid an import cycle (syntax/register.go imports expand, and
// syntax already owns the arithmetic parser).
var parseArithmFn = func(string) (ast.ArithmExpr, error) {
	return nil, fmt.Errorf("arithmetic parser not registered")
}

// RegisterArithmParser lets the syntax package (or a test) supply the
// real $(( ... )) parser without expand importing syntax directly.
func RegisterArithmParser(f func(string) (ast.ArithmExpr, error)) {
	parseArithmFn = f
}
