// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"os"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"rookery.dev/hsh/diagnose"
	"rookery.dev/hsh/pycmd"
	"rookery.dev/hsh/syntax"
)

func runSrc(t *testing.T, reg *pycmd.Registry, src string) (map[string]any, error) {
	t.Helper()
	root, err := syntax.Parse(src, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	diagnosed, err := diagnose.Diagnose(root, diagnose.RegistryResolver{Registry: reg})
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	r, err := New(StdIO(strings.NewReader(""), &strings.Builder{}, &strings.Builder{}), WithRegistry(reg))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return r.Run(context.Background(), diagnosed)
}

func TestExecPycmdRejectsNumberedRedirect(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	reg := pycmd.NewRegistry()
	reg.Register(pycmd.Cmd{
		Name:    "gen",
		InKind:  pycmd.No,
		OutKind: pycmd.Python,
		Run: func(ctx context.Context, args []any, input any, opts pycmd.Options, res pycmd.Result) error {
			return res.Emit(1)
		},
	})

	_, err := runSrc(t, reg, "gen 2>&1")
	c.Assert(err, qt.IsNotNil)
	var typeErr *diagnose.TypeError
	c.Assert(err, qt.ErrorAs, &typeErr)
}

func TestPycmdChdirMovesSubsequentCommands(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	dir := t.TempDir()
	sub := dir + "/sub"
	c.Assert(os.Mkdir(sub, 0o755), qt.IsNil)
	c.Assert(os.WriteFile(sub+"/marker.txt", []byte("x"), 0o644), qt.IsNil)

	reg := pycmd.NewRegistry()
	reg.Register(pycmd.Cmd{
		Name:    "cd",
		InKind:  pycmd.No,
		OutKind: pycmd.No,
		Run: func(ctx context.Context, args []any, input any, opts pycmd.Options, res pycmd.Result) error {
			return opts.Chdir(args[0].(string))
		},
	})

	root, err := syntax.Parse("cd sub ; ls marker.txt", nil)
	c.Assert(err, qt.IsNil)
	diagnosed, err := diagnose.Diagnose(root, diagnose.RegistryResolver{Registry: reg})
	c.Assert(err, qt.IsNil)

	var out strings.Builder
	r, err := New(StdIO(strings.NewReader(""), &out, &out), WithRegistry(reg), Dir(dir))
	c.Assert(err, qt.IsNil)
	_, err = r.Run(context.Background(), diagnosed)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(out.String(), "marker.txt"), qt.IsTrue)
}

func TestExecPycmdRejectsMultipleRedirects(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	reg := pycmd.NewRegistry()
	reg.Register(pycmd.Cmd{
		Name:    "gen",
		InKind:  pycmd.No,
		OutKind: pycmd.Python,
		Run: func(ctx context.Context, args []any, input any, opts pycmd.Options, res pycmd.Result) error {
			return res.Emit(1)
		},
	})

	_, err := runSrc(t, reg, "gen => a => b")
	c.Assert(err, qt.IsNotNil)
	var typeErr *diagnose.TypeError
	c.Assert(err, qt.ErrorAs, &typeErr)
}
