// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"rush.sh/rush/ast"
)

// arithmParser is a Pratt (precedence-climbing) parser over the
// arithmetic sub-lexer's token stream, per spec §4.4's precedence
// table (tight to loose): postfix ++/--, unary, **, * / %, + -,
// << >>, relational, == !=, &, ^, |, &&, ||, ?:, assignment, comma.
type arithmParser struct {
	lex    *arithLexer
	tok    arithTok
	peeked *arithTok
}

// ParseArithm parses the contents of a $(( ... )) expansion (without
// the surrounding $(( and )) delimiters). An empty expression is valid
// and evaluates to 0 (spec §4.4, §8).
func ParseArithm(src string) (ast.ArithmExpr, error) {
	p := &arithmParser{lex: newArithLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == atEOF {
		return &ast.ArithmLit{ValuePos: p.tok.pos, Value: 0}, nil
	}
	x, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != atEOF {
		return nil, &SyntaxError{Pos: p.tok.pos, Msg: "unexpected token in arithmetic expression"}
	}
	return x, nil
}

func (p *arithmParser) advance() error {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
		return nil
	}
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

// binding powers: higher binds tighter.
var arithmBinPow = map[arithTokKind]int{
	atComma:     1,
	atAssign:    2, atAddAssign: 2, atSubAssign: 2, atMulAssign: 2, atQuoAssign: 2,
	atRemAssign: 2, atAndAssign: 2, atOrAssign: 2, atXorAssign: 2, atShlAssign: 2, atShrAssign: 2,
	atQuest:  3,
	atLogOr:  4,
	atLogAnd: 5,
	atBitOr:  6,
	atBitXor: 7,
	atBitAnd: 8,
	atEql:    9, atNeq: 9,
	atLss: 10, atGtr: 10, atLeq: 10, atGeq: 10,
	atShl: 11, atShr: 11,
	atPlus: 12, atMinus: 12,
	atMul: 13, atQuo: 13, atRem: 13,
	atPow: 14,
}

var arithmAssignOps = map[arithTokKind]ast.ArithmBinaryOp{
	atAssign:    ast.ArAssign,
	atAddAssign: ast.ArAddAssign,
	atSubAssign: ast.ArSubAssign,
	atMulAssign: ast.ArMulAssign,
	atQuoAssign: ast.ArQuoAssign,
	atRemAssign: ast.ArRemAssign,
	atAndAssign: ast.ArAndAssign,
	atOrAssign:  ast.ArOrAssign,
	atXorAssign: ast.ArXorAssign,
	atShlAssign: ast.ArShlAssign,
	atShrAssign: ast.ArShrAssign,
}

var arithmBinOps = map[arithTokKind]ast.ArithmBinaryOp{
	atLogOr: ast.ArLogOr, atLogAnd: ast.ArLogAnd,
	atBitOr: ast.ArBitOr, atBitXor: ast.ArBitXor, atBitAnd: ast.ArBitAnd,
	atEql: ast.ArEql, atNeq: ast.ArNeq,
	atLss: ast.ArLss, atGtr: ast.ArGtr, atLeq: ast.ArLeq, atGeq: ast.ArGeq,
	atShl: ast.ArShl, atShr: ast.ArShr,
	atPlus: ast.ArAdd, atMinus: ast.ArSub,
	atMul: ast.ArMul, atQuo: ast.ArQuo, atRem: ast.ArRem,
	atPow:   ast.ArPow,
	atComma: ast.ArComma,
}

// parseExpr implements precedence climbing: it parses a unary, then
// repeatedly folds in binary/ternary/assignment operators whose
// binding power is >= minPow.
func (p *arithmParser) parseExpr(minPow int) (ast.ArithmExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		pow, ok := arithmBinPow[p.tok.kind]
		if !ok || pow < minPow {
			return left, nil
		}
		switch p.tok.kind {
		case atQuest:
			left, err = p.parseTernary(left)
			if err != nil {
				return nil, err
			}
			continue
		case atAssign, atAddAssign, atSubAssign, atMulAssign, atQuoAssign,
			atRemAssign, atAndAssign, atOrAssign, atXorAssign, atShlAssign, atShrAssign:
			if !isAssignable(left) {
				return nil, &SyntaxError{Pos: p.tok.pos, Msg: "invalid assignment target"}
			}
			opPos := p.tok.pos
			op := arithmAssignOps[p.tok.kind]
			if err := p.advance(); err != nil {
				return nil, err
			}
			// assignment is right-associative: rebind at the same power
			right, err := p.parseExpr(pow)
			if err != nil {
				return nil, err
			}
			left = &ast.ArithmBinary{OpPos: opPos, Op: op, X: left, Y: right}
			continue
		case atPow:
			// right-associative
			opPos := p.tok.pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseExpr(pow)
			if err != nil {
				return nil, err
			}
			left = &ast.ArithmBinary{OpPos: opPos, Op: ast.ArPow, X: left, Y: right}
			continue
		default:
			opPos := p.tok.pos
			op := arithmBinOps[p.tok.kind]
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseExpr(pow + 1)
			if err != nil {
				return nil, err
			}
			left = &ast.ArithmBinary{OpPos: opPos, Op: op, X: left, Y: right}
		}
	}
}

func (p *arithmParser) parseTernary(cond ast.ArithmExpr) (ast.ArithmExpr, error) {
	questPos := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	then, err := p.parseExpr(1)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != atColon {
		return nil, &SyntaxError{Pos: p.tok.pos, Msg: "expected ':' in ternary expression"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	els, err := p.parseExpr(3) // right-assoc: same precedence as ?:
	if err != nil {
		return nil, err
	}
	return &ast.ArithmTernary{QuestPos: questPos, Cond: cond, Then: then, Else: els}, nil
}

func isAssignable(x ast.ArithmExpr) bool {
	_, ok := x.(*ast.ArithmVar)
	return ok
}

func (p *arithmParser) parseUnary() (ast.ArithmExpr, error) {
	pos := p.tok.pos
	switch p.tok.kind {
	case atPlus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.ArithmUnary{OpPos: pos, Op: ast.ArUnPlus, X: x}, nil
	case atMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.ArithmUnary{OpPos: pos, Op: ast.ArUnMinus, X: x}, nil
	case atNot:
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.ArithmUnary{OpPos: pos, Op: ast.ArUnNot, X: x}, nil
	case atBitNeg:
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.ArithmUnary{OpPos: pos, Op: ast.ArUnBitNeg, X: x}, nil
	case atInc, atDec:
		op := ast.ArUnPreInc
		if p.tok.kind == atDec {
			op = ast.ArUnPreDec
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !isAssignable(x) {
			return nil, &SyntaxError{Pos: pos, Msg: "invalid assignment target"}
		}
		return &ast.ArithmUnary{OpPos: pos, Op: op, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *arithmParser) parsePostfix() (ast.ArithmExpr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == atInc || p.tok.kind == atDec {
		if !isAssignable(x) {
			return nil, &SyntaxError{Pos: p.tok.pos, Msg: "invalid assignment target"}
		}
		op := ast.ArUnPostInc
		if p.tok.kind == atDec {
			op = ast.ArUnPostDec
		}
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		x = &ast.ArithmUnary{OpPos: pos, Op: op, X: x}
	}
	return x, nil
}

func (p *arithmParser) parsePrimary() (ast.ArithmExpr, error) {
	switch p.tok.kind {
	case atNumber:
		n := &ast.ArithmLit{ValuePos: p.tok.pos, Value: p.tok.ival}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil
	case atIdent:
		v := &ast.ArithmVar{NamePos: p.tok.pos, Name: p.tok.ident}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return v, nil
	case atLParen:
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseExpr(1)
		if err != nil {
			return nil, err
		}
		if p.tok.kind != atRParen {
			return nil, &SyntaxError{Pos: p.tok.pos, Msg: "expected ')'"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ArithmParen{LParenPos: pos, X: x}, nil
	}
	return nil, &SyntaxError{Pos: p.tok.pos, Msg: "unexpected token in arithmetic expression"}
}
