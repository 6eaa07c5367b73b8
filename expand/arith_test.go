package expand_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"rush.sh/rush/expand"
	"rush.sh/rush/syntax"
	"rush.sh/rush/vars"
)

func evalArithm(c *qt.C, m *vars.Manager, src string) int64 {
	x, err := syntax.ParseArithm(src)
	c.Assert(err, qt.IsNil, qt.Commentf("parsing %q", src))
	v, err := expand.Arithm(m, x)
	c.Assert(err, qt.IsNil, qt.Commentf("evaluating %q", src))
	return v
}

func TestArithmBasic(t *testing.T) {
	c := qt.New(t)
	m := vars.NewEmptyManager()
	c.Assert(evalArithm(c, m, "1 + 2 * 3"), qt.Equals, int64(7))
	c.Assert(evalArithm(c, m, "(1 + 2) * 3"), qt.Equals, int64(9))
	c.Assert(evalArithm(c, m, "2 ** 10"), qt.Equals, int64(1024))
	c.Assert(evalArithm(c, m, "7 % 3"), qt.Equals, int64(1))
	c.Assert(evalArithm(c, m, "1 ? 2 : 3"), qt.Equals, int64(2))
	c.Assert(evalArithm(c, m, "0 ? 2 : 3"), qt.Equals, int64(3))
	c.Assert(evalArithm(c, m, ""), qt.Equals, int64(0))
}

func TestArithmAssignment(t *testing.T) {
	c := qt.New(t)
	m := vars.NewEmptyManager()
	c.Assert(evalArithm(c, m, "x = 5"), qt.Equals, int64(5))
	c.Assert(evalArithm(c, m, "x += 2"), qt.Equals, int64(7))
	c.Assert(evalArithm(c, m, "x++"), qt.Equals, int64(7))
	c.Assert(evalArithm(c, m, "x"), qt.Equals, int64(8))
	c.Assert(evalArithm(c, m, "++x"), qt.Equals, int64(9))
}

func TestArithmDivisionByZero(t *testing.T) {
	c := qt.New(t)
	m := vars.NewEmptyManager()
	x, err := syntax.ParseArithm("1 / 0")
	c.Assert(err, qt.IsNil)
	_, err = expand.Arithm(m, x)
	c.Assert(err, qt.ErrorMatches, "division by zero")
}

func TestArithmNegativeExponentErrors(t *testing.T) {
	c := qt.New(t)
	m := vars.NewEmptyManager()
	x, err := syntax.ParseArithm("2 ** -1")
	c.Assert(err, qt.IsNil)
	_, err = expand.Arithm(m, x)
	c.Assert(err, qt.ErrorMatches, "exponent less than zero")
}

func TestArithmUndefinedVarIsZero(t *testing.T) {
	c := qt.New(t)
	m := vars.NewEmptyManager()
	c.Assert(evalArithm(c, m, "undefined + 1"), qt.Equals, int64(1))
}
