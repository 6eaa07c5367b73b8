package vars

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSetGet(t *testing.T) {
	c := qt.New(t)
	m := NewEmptyManager()
	c.Assert(m.Set("FOO", "bar"), qt.IsNil)
	v, ok := m.Get("FOO")
	c.Assert(ok, qt.IsTrue)
	c.Assert(v.AsString(), qt.Equals, "bar")
}

func TestArrayAppendPromotesScalar(t *testing.T) {
	c := qt.New(t)
	m := NewEmptyManager()
	c.Assert(m.Set("A", "x"), qt.IsNil)
	c.Assert(m.AppendToArray("A", "y"), qt.IsNil)
	c.Assert(m.GetArray("A"), qt.DeepEquals, []string{"x", "y"})
}

func TestScalarAppendPreservesScalar(t *testing.T) {
	c := qt.New(t)
	m := NewEmptyManager()
	c.Assert(m.Set("A", "x"), qt.IsNil)
	c.Assert(m.Append("A", "y"), qt.IsNil)
	v, _ := m.Get("A")
	c.Assert(v.IsArray, qt.IsFalse)
	c.Assert(v.AsString(), qt.Equals, "xy")
}

func TestPushPopScopeRestoresShadowed(t *testing.T) {
	c := qt.New(t)
	m := NewEmptyManager()
	c.Assert(m.Set("X", "outer"), qt.IsNil)
	m.PushScope()
	c.Assert(m.SetLocal("X", "inner"), qt.IsNil)
	v, _ := m.Get("X")
	c.Assert(v.AsString(), qt.Equals, "inner")
	m.PopScope()
	v, _ = m.Get("X")
	c.Assert(v.AsString(), qt.Equals, "outer")
}

// TestSetOnUnboundNameInPushedScopeGoesGlobal exercises spec §8
// invariant 2 directly: push_scope(); set(x,v1); set_local(x,v2);
// pop_scope(); get(x) == v1. Set must create a genuinely-unbound name
// in the global scope, not the pushed one, or pop_scope discards v1
// along with the whole frame.
func TestSetOnUnboundNameInPushedScopeGoesGlobal(t *testing.T) {
	c := qt.New(t)
	m := NewEmptyManager()
	m.PushScope()
	c.Assert(m.Set("x", "v1"), qt.IsNil)
	c.Assert(m.SetLocal("x", "v2"), qt.IsNil)
	v, _ := m.Get("x")
	c.Assert(v.AsString(), qt.Equals, "v2")
	m.PopScope()
	v, ok := m.Get("x")
	c.Assert(ok, qt.IsTrue)
	c.Assert(v.AsString(), qt.Equals, "v1")
}

func TestReadOnlyRejectsSet(t *testing.T) {
	c := qt.New(t)
	m := NewEmptyManager()
	c.Assert(m.Set("X", "1"), qt.IsNil)
	m.SetReadOnly("X")
	c.Assert(m.Set("X", "2"), qt.IsNotNil)
}

func TestExportIncludesInEnviron(t *testing.T) {
	c := qt.New(t)
	m := NewEmptyManager()
	c.Assert(m.Set("X", "1"), qt.IsNil)
	c.Assert(m.Set("Y", "2"), qt.IsNil)
	c.Assert(m.Export("X"), qt.IsNil)
	env := m.Environ()
	c.Assert(env, qt.DeepEquals, []string{"X=1"})
}

func TestUnsetRemovesFromOwningScope(t *testing.T) {
	c := qt.New(t)
	m := NewEmptyManager()
	c.Assert(m.Set("X", "1"), qt.IsNil)
	c.Assert(m.Unset("X"), qt.IsNil)
	_, ok := m.Get("X")
	c.Assert(ok, qt.IsFalse)
}
