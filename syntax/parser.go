// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"rush.sh/rush/ast"
	"rush.sh/rush/token"
)

// Parser turns a Lexer's token stream into a command tree, following
// the grammar in spec §4.2:
//
//	program       := compound_list EOF
//	compound_list := and_or ( (';' | '&' | NEWLINE) and_or )*
//	and_or        := pipeline ( ('&&' | '||') pipeline )*
//	pipeline      := command ( '|' command )*
//	command       := simple | compound
//	simple        := WORD+ redirect*
//
// Keywords (if/then/elif/else/fi, for/in/do/done, while/do/done,
// until/do/done, case/in/esac, function, break, continue, return,
// local) are only recognized as the first Word of a command position.
type Parser struct {
	lex *Lexer
	tok Tok
	err error
}

// NewParser returns a Parser with no input attached yet; call Parse to
// parse a string as a complete program.
func NewParser() *Parser { return &Parser{} }

// Parse parses src as a complete program (spec's "program" production)
// and returns the resulting File, or the first SyntaxError hit. There
// is no partial parse on error.
func (p *Parser) Parse(src, name string) (*ast.File, error) {
	p.lex = NewLexer([]byte(src))
	p.err = nil
	if err := p.advance(); err != nil {
		return nil, err
	}
	list, err := p.compoundList(nil)
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != token.EOF {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "unexpected token " + p.tok.Kind.String()}
	}
	return &ast.File{Name: name, Stmts: list}, nil
}

func (p *Parser) advance() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *Parser) lit() (string, bool) {
	if p.tok.Kind != token.WORD {
		return "", false
	}
	return p.tok.Word.Lit()
}

// isKeyword reports whether the current WORD token is exactly kw and
// is unquoted (quoted text never triggers keyword recognition).
func (p *Parser) isKeyword(kw string) bool {
	if p.tok.Kind != token.WORD || len(p.tok.Word.Parts) != 1 {
		return false
	}
	lit, ok := p.tok.Word.Parts[0].(*ast.Lit)
	return ok && lit.Value == kw
}

func (p *Parser) atTerminator(terms ...string) bool {
	for _, t := range terms {
		if p.isKeyword(t) {
			return true
		}
	}
	return false
}

// compoundList parses a compound_list, stopping before EOF or any of
// stopWords (used so callers like "if...then" know where the block
// ends).
func (p *Parser) compoundList(stopWords []string) (*ast.CompoundList, error) {
	list := &ast.CompoundList{}
	for {
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		if p.tok.Kind == token.EOF || p.tok.Kind == token.RPAREN || p.tok.Kind == token.RBRACE {
			break
		}
		if p.atTerminator(stopWords...) {
			break
		}
		item, err := p.andOr()
		if err != nil {
			return nil, err
		}
		list.Stmts = append(list.Stmts, item)
		if p.tok.Kind == token.AND {
			item.First.Background = true
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue // '&' is itself a separator
		}
		if p.tok.Kind != token.SEMICOLON && p.tok.Kind != token.NEWLINE &&
			p.tok.Kind != token.EOF && p.tok.Kind != token.RPAREN && p.tok.Kind != token.RBRACE &&
			!p.atTerminator(stopWords...) {
			return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected a command separator"}
		}
	}
	return list, nil
}

func (p *Parser) skipSeparators() error {
	for p.tok.Kind == token.SEMICOLON || p.tok.Kind == token.NEWLINE {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// caseArmBody parses the compound_list inside one case arm, stopping
// before ';;', 'esac', or EOF without ever mistaking the following
// arm's pattern for more of this arm's body.
func (p *Parser) caseArmBody() (*ast.CompoundList, error) {
	list := &ast.CompoundList{}
	for {
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		if p.tok.Kind == token.EOF || p.tok.Kind == token.DSEMICOLON || p.isKeyword("esac") {
			break
		}
		item, err := p.andOr()
		if err != nil {
			return nil, err
		}
		list.Stmts = append(list.Stmts, item)
		if p.tok.Kind == token.AND {
			item.First.Background = true
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue // '&' is itself a separator
		}
		if p.tok.Kind != token.SEMICOLON && p.tok.Kind != token.NEWLINE &&
			p.tok.Kind != token.EOF && p.tok.Kind != token.DSEMICOLON && !p.isKeyword("esac") {
			return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected a command separator"}
		}
	}
	return list, nil
}

func (p *Parser) andOr() (*ast.AndOrList, error) {
	first, err := p.pipeline()
	if err != nil {
		return nil, err
	}
	list := &ast.AndOrList{First: first}
	for p.tok.Kind == token.LAND || p.tok.Kind == token.LOR {
		op := ast.AndOrAnd
		if p.tok.Kind == token.LOR {
			op = ast.AndOrOr
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		next, err := p.pipeline()
		if err != nil {
			return nil, err
		}
		list.Rest = append(list.Rest, ast.AndOrTail{Op: op, Pipeline: next})
	}
	return list, nil
}

func (p *Parser) pipeline() (*ast.Pipeline, error) {
	pl := &ast.Pipeline{}
	if p.isKeyword("!") {
		pl.Negate = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	for {
		cmd, err := p.command()
		if err != nil {
			return nil, err
		}
		pl.Commands = append(pl.Commands, cmd)
		if p.tok.Kind != token.PIPE {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
	}
	return pl, nil
}

// command parses one "command" production: a compound statement if
// the next word is a recognized keyword, otherwise a simple command.
// Compound statements are wrapped in a single-command Pipeline via a
// synthetic Command whose Words records nothing and whose embedded
// CompoundStatement is stashed on it — instead, to keep Pipeline
// homogeneous, rush represents a compound statement appearing in
// pipeline position as a *ast.Command with Compound set.
func (p *Parser) command() (*ast.Command, error) {
	switch {
	case p.isKeyword("if"):
		return p.ifCommand()
	case p.isKeyword("for"):
		return p.forCommand()
	case p.isKeyword("while"):
		return p.whileCommand(false)
	case p.isKeyword("until"):
		return p.whileCommand(true)
	case p.isKeyword("case"):
		return p.caseCommand()
	case p.tok.Kind == token.LBRACE:
		return p.groupCommand()
	case p.tok.Kind == token.LPAREN:
		return p.subshellCommand()
	case p.isKeyword("function"):
		return p.funcDecl()
	}
	if name, ok := p.funcDeclAhead(); ok {
		pos := p.tok.Pos
		body, err := p.bracedOrSingleBody()
		if err != nil {
			return nil, err
		}
		return compoundCommand(pos, &ast.CompoundStatement{FuncDef: &ast.FuncDecl{NamePos: pos, Name: name, Body: body}}), nil
	}
	return p.simpleCommand()
}

// funcDeclAhead detects "name()" without consuming input unless it
// matches, by checking the lexer directly: a bare WORD immediately
// followed by LPAREN RPAREN is a POSIX function definition.
func (p *Parser) funcDeclAhead() (string, bool) {
	name, ok := p.lit()
	if !ok || !ast.ValidName(name) {
		return "", false
	}
	save := *p.lex
	saveTok := p.tok
	if err := p.advance(); err != nil || p.tok.Kind != token.LPAREN {
		*p.lex = save
		p.tok = saveTok
		return "", false
	}
	if err := p.advance(); err != nil || p.tok.Kind != token.RPAREN {
		*p.lex = save
		p.tok = saveTok
		return "", false
	}
	if err := p.advance(); err != nil {
		*p.lex = save
		p.tok = saveTok
		return "", false
	}
	return name, true
}

func (p *Parser) funcDecl() (*ast.Command, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, ok := p.lit()
	if !ok {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected function name"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == token.LPAREN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != token.RPAREN {
			return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected ')'"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	body, err := p.bracedOrSingleBody()
	if err != nil {
		return nil, err
	}
	return compoundCommand(pos, &ast.CompoundStatement{FuncDef: &ast.FuncDecl{NamePos: pos, Name: name, Body: body}}), nil
}

func (p *Parser) bracedOrSingleBody() (*ast.CompoundList, error) {
	if p.tok.Kind != token.LBRACE {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected '{' to start function body"}
	}
	cmd, err := p.groupCommand()
	if err != nil {
		return nil, err
	}
	return cmd.Compound.Group, nil
}

func compoundCommand(pos token.Pos, cs *ast.CompoundStatement) *ast.Command {
	return &ast.Command{Raw: "", Compound: cs}
}

func (p *Parser) ifCommand() (*ast.Command, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.compoundList([]string{"then"})
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("then") {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected 'then'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	then, err := p.compoundList([]string{"elif", "else", "fi"})
	if err != nil {
		return nil, err
	}
	ic := &ast.IfClause{IfPos: pos, Cond: cond, Then: then}
	for p.isKeyword("elif") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		econd, err := p.compoundList([]string{"then"})
		if err != nil {
			return nil, err
		}
		if !p.isKeyword("then") {
			return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected 'then'"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		ethen, err := p.compoundList([]string{"elif", "else", "fi"})
		if err != nil {
			return nil, err
		}
		ic.Elifs = append(ic.Elifs, &ast.Elif{Cond: econd, Then: ethen})
	}
	if p.isKeyword("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		els, err := p.compoundList([]string{"fi"})
		if err != nil {
			return nil, err
		}
		ic.Else = els
	}
	if !p.isKeyword("fi") {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected 'fi'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return compoundCommand(pos, &ast.CompoundStatement{If: ic}), nil
}

func (p *Parser) forCommand() (*ast.Command, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, ok := p.lit()
	if !ok || !ast.ValidName(name) {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected a name after 'for'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	fc := &ast.ForClause{ForPos: pos, Name: name}
	if p.isKeyword("in") {
		fc.HasIn = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.tok.Kind == token.WORD {
			fc.Words = append(fc.Words, *p.tok.Word)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}
	if !p.isKeyword("do") {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected 'do'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.compoundList([]string{"done"})
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("done") {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected 'done'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	fc.Body = body
	return compoundCommand(pos, &ast.CompoundStatement{For: fc}), nil
}

func (p *Parser) whileCommand(until bool) (*ast.Command, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.compoundList([]string{"do"})
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("do") {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected 'do'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.compoundList([]string{"done"})
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("done") {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected 'done'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	loop := &ast.WhileLoop{KwPos: pos, Cond: cond, Body: body}
	cs := &ast.CompoundStatement{}
	if until {
		cs.Until = loop
	} else {
		cs.While = loop
	}
	return compoundCommand(pos, cs), nil
}

func (p *Parser) caseCommand() (*ast.Command, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind != token.WORD {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected a word after 'case'"}
	}
	subject := *p.tok.Word
	if err := p.advance(); err != nil {
		return nil, err
	}
	if !p.isKeyword("in") {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected 'in'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}
	cc := &ast.CaseClause{CasePos: pos, Subject: subject}
	for !p.isKeyword("esac") {
		if p.tok.Kind == token.LPAREN {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		arm := &ast.CaseArm{}
		for {
			if p.tok.Kind != token.WORD {
				return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected a pattern"}
			}
			arm.Patterns = append(arm.Patterns, *p.tok.Word)
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind == token.PIPE {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if p.tok.Kind != token.RPAREN {
			return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected ')'"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		body, err := p.caseArmBody()
		if err != nil {
			return nil, err
		}
		arm.Body = body
		cc.Arms = append(cc.Arms, arm)
		if p.tok.Kind == token.DSEMICOLON {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
	}
	if err := p.advance(); err != nil { // consume "esac"
		return nil, err
	}
	return compoundCommand(pos, &ast.CompoundStatement{Case: cc}), nil
}

func (p *Parser) groupCommand() (*ast.Command, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.compoundList([]string{"}"})
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != token.RBRACE {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected '}'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return compoundCommand(pos, &ast.CompoundStatement{Group: body}), nil
}

func (p *Parser) subshellCommand() (*ast.Command, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.compoundList(nil)
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != token.RPAREN {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected ')'"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return compoundCommand(pos, &ast.CompoundStatement{Subshell: body}), nil
}

var redirKinds = map[token.Token]ast.RedirKind{
	token.REDIROUT:    ast.RedirOutput,
	token.REDIRAPPEND: ast.RedirAppend,
	token.REDIRIN:     ast.RedirInput,
	token.REDIRERR:    ast.RedirStderr,
	token.REDIRERRAPP: ast.RedirStderrAppend,
}

func (p *Parser) simpleCommand() (*ast.Command, error) {
	cmd := &ast.Command{}
	for {
		if name, val, arr, append_, ok, err := p.tryAssign(); err != nil {
			return nil, err
		} else if ok {
			cmd.Assigns = append(cmd.Assigns, &ast.Assign{Name: name, Value: val, Array: arr, Append: append_})
			continue
		}
		break
	}
	dblBracket := false
	for {
		if dblBracket && (p.tok.Kind == token.LAND || p.tok.Kind == token.LOR) {
			// between [[ and ]], && and || are test operands, not list separators
			cmd.Words = append(cmd.Words, ast.Word{Parts: []ast.WordPart{&ast.Lit{ValuePos: p.tok.Pos, Value: p.tok.Kind.String()}}})
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if kind, ok := redirKinds[p.tok.Kind]; ok {
			opPos := p.tok.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind != token.WORD {
				return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected a word after redirection operator"}
			}
			cmd.Redirs = append(cmd.Redirs, &ast.Redirection{OpPos: opPos, Kind: kind, Target: *p.tok.Word})
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.Kind != token.WORD {
			break
		}
		if lit, ok := p.tok.Word.Lit(); ok {
			dblBracket = (dblBracket || (len(cmd.Words) == 0 && lit == "[[")) && lit != "]]"
		}
		cmd.Words = append(cmd.Words, *p.tok.Word)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if len(cmd.Words) == 0 && len(cmd.Assigns) == 0 {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected a command"}
	}
	return cmd, nil
}

// tryAssign consumes a leading NAME=value, NAME+=value, or NAME=(word
// word ...) word if the current WORD token is unquoted text of that
// exact shape. The array literal form requires the '(' to immediately
// follow the '=' with no intervening whitespace, matching the teacher
// style of lexer/parser cooperation used throughout this grammar.
func (p *Parser) tryAssign() (name string, val ast.Word, arr []ast.Word, append_ bool, ok bool, err error) {
	if p.tok.Kind != token.WORD || len(p.tok.Word.Parts) == 0 {
		return "", ast.Word{}, nil, false, false, nil
	}
	lit, isLit := p.tok.Word.Parts[0].(*ast.Lit)
	if !isLit {
		return "", ast.Word{}, nil, false, false, nil
	}
	eq := -1
	for i := 0; i < len(lit.Value); i++ {
		c := lit.Value[i]
		if c == '=' {
			eq = i
			break
		}
		if c == '+' && i+1 < len(lit.Value) && lit.Value[i+1] == '=' {
			eq = i + 1
			append_ = true
			break
		}
		if !isNameCont(c) && !(i == 0 && isNameStart(c)) {
			return "", ast.Word{}, nil, false, false, nil
		}
	}
	if eq <= 0 {
		return "", ast.Word{}, nil, false, false, nil
	}
	nameEnd := eq
	if append_ {
		nameEnd = eq - 1
	}
	nm := lit.Value[:nameEnd]
	if !ast.ValidName(nm) {
		return "", ast.Word{}, nil, false, false, nil
	}
	rest := lit.Value[eq+1:]
	w := ast.Word{}
	if rest != "" {
		w.Parts = append(w.Parts, &ast.Lit{ValuePos: lit.ValuePos, Value: rest})
	}
	w.Parts = append(w.Parts, p.tok.Word.Parts[1:]...)

	var arrayParenPos token.Pos
	if rest == "" && !append_ && len(p.tok.Word.Parts) == 1 {
		arrayParenPos = lit.ValuePos + token.Pos(len(lit.Value))
	}
	if err := p.advance(); err != nil {
		return "", ast.Word{}, nil, false, false, err
	}
	if arrayParenPos != 0 && p.tok.Kind == token.LPAREN && p.tok.Pos == arrayParenPos {
		items, err := p.arrayLiteral()
		if err != nil {
			return "", ast.Word{}, nil, false, false, err
		}
		return nm, ast.Word{}, items, false, true, nil
	}
	return nm, w, nil, append_, true, nil
}

// arrayLiteral parses the "(word word ...)" tail of an arr=(...)
// assignment, having already seen the opening '(' in p.tok.
func (p *Parser) arrayLiteral() ([]ast.Word, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var items []ast.Word
	for {
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		if p.tok.Kind == token.RPAREN {
			break
		}
		if p.tok.Kind != token.WORD {
			return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "expected a word or ')' in array literal"}
		}
		items = append(items, *p.tok.Word)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.advance(); err != nil { // consume ')'
		return nil, err
	}
	return items, nil
}
