package exec

import (
	"bytes"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func newTestShell(stdin string) (*Shell, *bytes.Buffer, *bytes.Buffer) {
	s := New()
	s.Stdin = strings.NewReader(stdin)
	var out, errOut bytes.Buffer
	s.Stdout = &out
	s.Stderr = &errOut
	return s, &out, &errOut
}

func TestEchoAndExit(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine("echo hello world")
	qt.Assert(t, out.String(), qt.Equals, "hello world\n")
	qt.Assert(t, s.LastExit, qt.Equals, 0)
}

func TestVariableAssignmentAndExpansion(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`x=foo; echo "$x bar"`)
	qt.Assert(t, out.String(), qt.Equals, "foo bar\n")
}

func TestParamExpDefault(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`echo ${x:-outer}`)
	qt.Assert(t, out.String(), qt.Equals, "outer\n")
}

func TestParamExpAssignDefault(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`echo ${x:=assigned}; echo "$x"`)
	qt.Assert(t, out.String(), qt.Equals, "assigned\nassigned\n")
}

func TestParamExpAlternate(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`x=set; echo ${x:+alt}`)
	qt.Assert(t, out.String(), qt.Equals, "alt\n")
}

func TestAndOrShortCircuit(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`true && echo yes || echo no`)
	qt.Assert(t, out.String(), qt.Equals, "yes\n")

	out.Reset()
	s.RunLine(`false && echo yes || echo no`)
	qt.Assert(t, out.String(), qt.Equals, "no\n")
}

func TestIfElif(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`
if false; then
  echo a
elif true; then
  echo b
else
  echo c
fi`)
	qt.Assert(t, out.String(), qt.Equals, "b\n")
}

func TestForLoop(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`for x in a b c; do echo "$x"; done`)
	qt.Assert(t, out.String(), qt.Equals, "a\nb\nc\n")
}

func TestForLoopBreakContinue(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`for x in 1 2 3 4 5; do
  if [ "$x" = 2 ]; then continue; fi
  if [ "$x" = 4 ]; then break; fi
  echo "$x"
done`)
	qt.Assert(t, out.String(), qt.Equals, "1\n3\n")
}

func TestWhileLoop(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`i=0; while [ "$i" -lt 3 ]; do echo "$i"; i=$((i+1)); done`)
	qt.Assert(t, out.String(), qt.Equals, "0\n1\n2\n")
}

func TestCaseClause(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`
x=bar
case $x in
  foo) echo nope ;;
  bar|baz) echo matched ;;
  *) echo default ;;
esac`)
	qt.Assert(t, out.String(), qt.Equals, "matched\n")
}

func TestFunctionDeclAndReturn(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`
greet() {
  echo "hi $1"
  return 3
}
greet world
echo "code=$?"`)
	qt.Assert(t, out.String(), qt.Equals, "hi world\ncode=3\n")
}

func TestPipeline(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`echo "b
a
c" | sort`)
	qt.Assert(t, out.String(), qt.Equals, "a\nb\nc\n")
}

func TestArithmeticExpansion(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`echo $((2 + 3 * 4))`)
	qt.Assert(t, out.String(), qt.Equals, "14\n")
}

func TestCommandSubstitution(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine("echo $(echo inner)")
	qt.Assert(t, out.String(), qt.Equals, "inner\n")
}

func TestTestBuiltinStringAndNumeric(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`[ "abc" = "abc" ] && echo eq1`)
	s.RunLine(`[ 3 -lt 5 ] && echo lt1`)
	s.RunLine(`[ -z "" ] && echo empty1`)
	qt.Assert(t, out.String(), qt.Equals, "eq1\nlt1\nempty1\n")
}

func TestDoubleBracketLogicalAndGlob(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`[[ "hello" == hel* ]] && echo glob-match`)
	s.RunLine(`[[ 1 -eq 1 && 2 -eq 2 ]] && echo and-match`)
	qt.Assert(t, out.String(), qt.Equals, "glob-match\nand-match\n")
}

func TestArraysAndIndexedExpansion(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`arr=(one two three); echo "${arr[1]}"`)
	qt.Assert(t, out.String(), qt.Equals, "two\n")
}

func TestAliasExpansion(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`alias greet='echo hi'; greet there`)
	qt.Assert(t, out.String(), qt.Equals, "hi there\n")
}

func TestSubshellIsolatesVariables(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`x=outer; (x=inner; echo "$x"); echo "$x"`)
	qt.Assert(t, out.String(), qt.Equals, "inner\nouter\n")
}

func TestLocalVariableScoping(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`
x=outer
f() {
  local x=inner
  echo "$x"
}
f
echo "$x"`)
	qt.Assert(t, out.String(), qt.Equals, "inner\nouter\n")
}

func TestPlainAssignmentInsideFunctionPersistsGlobally(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`f() { x=5; }; f; echo "$x"`)
	qt.Assert(t, out.String(), qt.Equals, "5\n")
}

func TestReadonlyRejectsAssignment(t *testing.T) {
	s, _, errOut := newTestShell("")
	s.RunLine(`readonly FOO=bar`)
	s.RunLine(`FOO=baz`)
	qt.Assert(t, errOut.String(), qt.Not(qt.Equals), "")
	v, _ := s.Vars.Get("FOO")
	qt.Assert(t, v.AsString(), qt.Equals, "bar")
}

func TestTrapRegistersAndLists(t *testing.T) {
	s, out, _ := newTestShell("")
	s.RunLine(`trap 'echo got-int' SIGINT`)
	out.Reset()
	s.RunLine(`trap`)
	qt.Assert(t, out.String(), qt.Equals, "trap -- 'echo got-int' SIGINT\n")
}

func TestExitCodeFromFalse(t *testing.T) {
	s, _, _ := newTestShell("")
	s.RunLine(`false`)
	qt.Assert(t, s.LastExit, qt.Equals, 1)
}
