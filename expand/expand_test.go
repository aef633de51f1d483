// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"rookery.dev/hsh/syntax"
)

type fakeScope struct {
	vals map[string]any
}

func (s fakeScope) Lookup(name string) (any, bool) {
	v, ok := s.vals[name]
	return v, ok
}

func (s fakeScope) Eval(expr string) (any, error) {
	if v, ok := s.vals[expr]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("undefined expression %q", expr)
}

type fakeBackquotes struct {
	lines []string
	err   error
}

func (f fakeBackquotes) RunBackquote(body syntax.Node) ([]string, error) {
	return f.lines, f.err
}

func lit(s string) syntax.Argument {
	return syntax.Argument{Parts: []syntax.ArgPart{&syntax.Lit{Value: s}}}
}

func sub(name string) syntax.Argument {
	return syntax.Argument{Parts: []syntax.ArgPart{&syntax.Substitution{Name: name}}}
}

func TestEvalArgumentLiteral(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	v, err := EvalArgument(lit("hello"), Config{})
	c.Assert(err, qt.IsNil)
	c.Assert(v.IsList, qt.IsFalse)
	c.Assert(v.Scalar, qt.Equals, "hello")
}

func TestEvalArgumentSubstitutionScalar(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	cfg := Config{Scope: fakeScope{vals: map[string]any{"x": 42}}}
	v, err := EvalArgument(sub("x"), cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(v.Scalar, qt.Equals, 42)
}

func TestEvalArgumentUndefinedSubstitution(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	cfg := Config{Scope: fakeScope{vals: map[string]any{}}}
	_, err := EvalArgument(sub("nope"), cfg)
	c.Assert(err, qt.IsNotNil)
	var evalErr *EvalError
	c.Assert(err, qt.ErrorAs, &evalErr)
}

func TestEvalArgumentGlob(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	dir := t.TempDir()
	c.Assert(os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644), qt.IsNil)

	v, err := EvalArgument(lit("*.txt"), Config{Dir: dir})
	c.Assert(err, qt.IsNil)
	c.Assert(v.IsList, qt.IsTrue)
	c.Assert(v.List, qt.DeepEquals, []string{"a.txt", "b.txt"})
}

func TestEvalArgumentTilde(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	v, err := EvalArgument(lit("~/docs"), Config{HomeDir: "/home/x"})
	c.Assert(err, qt.IsNil)
	c.Assert(v.Scalar, qt.Equals, "/home/x/docs")
}

func TestEvalArgumentStandaloneBackquote(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	arg := syntax.Argument{Parts: []syntax.ArgPart{&syntax.Backquote{Body: &syntax.Process{}}}}
	cfg := Config{Backquotes: fakeBackquotes{lines: []string{"one two", "three"}}}
	v, err := EvalArgument(arg, cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(v.IsList, qt.IsTrue)
	c.Assert(v.List, qt.DeepEquals, []string{"one", "two", "three"})
}

func TestStringify(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	c.Assert(Stringify("x"), qt.Equals, "x")
	c.Assert(Stringify(42), qt.Equals, "42")
	c.Assert(Stringify(3.5), qt.Equals, "3.5")
	c.Assert(Stringify(true), qt.Equals, "true")
	c.Assert(Stringify(nil), qt.Equals, "")
	c.Assert(Stringify([]string{"a", "b"}), qt.Equals, "a b")
}

func TestArgsFlattensLists(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	values := []Value{
		{Scalar: "echo"},
		{IsList: true, List: []string{"a", "b"}},
		{Scalar: 3},
	}
	c.Assert(Args(values), qt.DeepEquals, []string{"echo", "a", "b", "3"})
}
