package ast

import "rush.sh/rush/token"

// TestExpr is a tagged union for the [[ ]] expression language (spec
// §4.9). The parser does not produce these nodes: [[ is run as a
// builtin, and exec/test.go evaluates its expanded argument tokens
// directly.
type TestExpr interface {
	Node
	testExpr()
}

type TestWord struct {
	W Word
}

func (t *TestWord) Pos() token.Pos { return t.W.Pos() }
func (*TestWord) testExpr()        {}

type UnaryTestOp int

const (
	TestFileExists UnaryTestOp = iota // -e
	TestRegular                       // -f
	TestDirectory                     // -d
	TestReadable                      // -r
	TestWritable                      // -w
	TestExecutable                    // -x
	TestNonEmpty                      // -s
	TestStrEmpty                      // -z
	TestStrNonEmpty                   // -n
	TestNot                           // !
)

type UnaryTest struct {
	OpPos token.Pos
	Op    UnaryTestOp
	X     TestExpr
}

func (t *UnaryTest) Pos() token.Pos { return t.OpPos }
func (*UnaryTest) testExpr()        {}

type BinaryTestOp int

const (
	TestStrEq BinaryTestOp = iota // =
	TestStrNe                     // !=
	TestStrLt                     // <
	TestStrGt                     // >
	TestNumEq                     // -eq
	TestNumNe                     // -ne
	TestNumLt                     // -lt
	TestNumLe                     // -le
	TestNumGt                     // -gt
	TestNumGe                     // -ge
	TestGlobEq                    // ==
	TestGlobNe                    // !=  (glob form, only valid for ==/!=)
	TestRegexMatch                // =~
	TestAnd                       // &&
	TestOr                        // ||
)

type BinaryTest struct {
	OpPos token.Pos
	Op    BinaryTestOp
	X, Y  TestExpr
}

func (t *BinaryTest) Pos() token.Pos { return t.OpPos }
func (*BinaryTest) testExpr()        {}

type ParenTest struct {
	LParenPos token.Pos
	X         TestExpr
}

func (t *ParenTest) Pos() token.Pos { return t.LParenPos }
func (*ParenTest) testExpr()        {}
