// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func argWords(t *testing.T, n Node) []string {
	t.Helper()
	p, ok := n.(*Process)
	if !ok {
		t.Fatalf("not a Process: %T", n)
	}
	var words []string
	for _, arg := range p.Args {
		var w string
		for _, part := range arg.Parts {
			if lit, ok := part.(*Lit); ok {
				w += lit.Value
			}
		}
		words = append(words, w)
	}
	return words
}

func TestParseProcess(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	n, err := Parse("echo hello world", nil)
	c.Assert(err, qt.IsNil)
	c.Assert(argWords(t, n), qt.DeepEquals, []string{"echo", "hello", "world"})
}

func TestParseBinary(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	n, err := Parse("foo | bar", nil)
	c.Assert(err, qt.IsNil)
	b, ok := n.(*BinaryOp)
	c.Assert(ok, qt.IsTrue)
	c.Assert(b.Op, qt.Equals, OpPipe)

	n, err = Parse("foo && bar || baz", nil)
	c.Assert(err, qt.IsNil)
	top, ok := n.(*BinaryOp)
	c.Assert(ok, qt.IsTrue)
	c.Assert(top.Op, qt.Equals, OpOr)
	left, ok := top.Left.(*BinaryOp)
	c.Assert(ok, qt.IsTrue)
	c.Assert(left.Op, qt.Equals, OpAnd)

	n, err = Parse("a ; b ; c", nil)
	c.Assert(err, qt.IsNil)
	_, ok = n.(*BinaryOp)
	c.Assert(ok, qt.IsTrue)
}

func TestParseAssign(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	n, err := Parse("foo -> result", nil)
	c.Assert(err, qt.IsNil)
	a, ok := n.(*Assign)
	c.Assert(ok, qt.IsTrue)
	c.Assert(a.Name, qt.Equals, "result")
}

func TestParseRedirectDup(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	n, err := Parse("foo 2>&1", nil)
	c.Assert(err, qt.IsNil)
	p := n.(*Process)
	c.Assert(p.Redirects, qt.HasLen, 1)
	r := p.Redirects[0]
	c.Assert(r.Kind, qt.Equals, RedirDup)
	c.Assert(r.SrcFD, qt.Equals, 2)
	c.Assert(r.DstFD, qt.Equals, 1)
}

func TestParseRedirectFile(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	n, err := Parse("foo >> out.log", nil)
	c.Assert(err, qt.IsNil)
	p := n.(*Process)
	c.Assert(p.Redirects, qt.HasLen, 1)
	r := p.Redirects[0]
	c.Assert(r.Kind, qt.Equals, RedirFile)
	c.Assert(r.Append, qt.IsTrue)
	c.Assert(r.SrcFD, qt.Equals, 1)
}

func TestParseCapture(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	n, err := Parse("foo => lines", nil)
	c.Assert(err, qt.IsNil)
	p := n.(*Process)
	c.Assert(p.Redirects, qt.HasLen, 1)
	c.Assert(p.Redirects[0].Kind, qt.Equals, RedirCapture)
	c.Assert(p.Redirects[0].VarName, qt.Equals, "lines")
}

func TestParseParens(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	n, err := Parse("(foo ; bar) | baz", nil)
	c.Assert(err, qt.IsNil)
	b, ok := n.(*BinaryOp)
	c.Assert(ok, qt.IsTrue)
	c.Assert(b.Op, qt.Equals, OpPipe)
	_, ok = b.Left.(*BinaryOp)
	c.Assert(ok, qt.IsTrue)
}

func TestParseBackquote(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	n, err := Parse("echo `hostname`", nil)
	c.Assert(err, qt.IsNil)
	p := n.(*Process)
	c.Assert(p.Args, qt.HasLen, 2)
	_, ok := p.Args[1].Parts[0].(*Backquote)
	c.Assert(ok, qt.IsTrue)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		"| foo",
		"foo |",
		"foo &&",
		"(foo",
		"foo )",
		"()",
		"foo ->",
		"foo -> 1bad",
		"foo >>&1",
	}
	for _, src := range tests {
		src := src
		t.Run(src, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(src, nil)
			qt.Assert(t, err, qt.IsNotNil)
		})
	}
}

func TestParseAlias(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	aliases := AliasMap{
		"ll": {Expansion: "ls -la", Global: false},
	}
	n, err := Parse("ll /tmp", aliases)
	c.Assert(err, qt.IsNil)
	c.Assert(argWords(t, n), qt.DeepEquals, []string{"ls", "-la", "/tmp"})
}
