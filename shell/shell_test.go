// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package shell

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"rookery.dev/hsh/interp"
	"rookery.dev/hsh/internal/testutil"
	"rookery.dev/hsh/pycmd"
)

func TestShellRunExternalCapture(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	sh := New()
	caps, err := sh.Run(context.Background(), "echo hi => lines")
	c.Assert(err, qt.IsNil)
	c.Assert(caps["lines"], qt.DeepEquals, []any{"hi"})
}

func TestShellRunAssignExitStatus(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	sh := New()
	caps, err := sh.Run(context.Background(), "true -> code")
	c.Assert(err, qt.IsNil)
	c.Assert(caps["code"], qt.Equals, 0)
}

func TestShellRunPycmdPipedToExternal(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	reg := pycmd.NewRegistry()
	reg.Register(pycmd.Cmd{
		Name:    "nums",
		InKind:  pycmd.No,
		OutKind: pycmd.Python,
		Run: func(ctx context.Context, args []any, input any, opts pycmd.Options, res pycmd.Result) error {
			for _, v := range []int{1, 2, 3} {
				if err := res.Emit(v); err != nil {
					return err
				}
			}
			return nil
		},
	})

	var out testutil.ConcBuffer
	sh := New(WithRegistry(reg))
	_, err := sh.RunStreamed(context.Background(), "nums | cat", nil, &out, &out)
	c.Assert(err, qt.IsNil)
	c.Assert(out.String(), qt.Equals, "1\n2\n3\n")
}

func TestShellRunSequentialMixedOutKinds(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	reg := pycmd.NewRegistry()
	reg.Register(pycmd.Cmd{
		Name:    "nums",
		InKind:  pycmd.No,
		OutKind: pycmd.Python,
		Run: func(ctx context.Context, args []any, input any, opts pycmd.Options, res pycmd.Result) error {
			for _, v := range []int{1, 2} {
				if err := res.Emit(v); err != nil {
					return err
				}
			}
			return nil
		},
	})

	var out testutil.ConcBuffer
	sh := New(WithRegistry(reg))
	_, err := sh.RunStreamed(context.Background(), "echo hi ; nums", nil, &out, &out)
	c.Assert(err, qt.IsNil)
	c.Assert(out.String(), qt.Equals, "hi\n1\n2\n")
}

func TestShellRunAlias(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	aliases := NewAliasTable()
	aliases.Set("greet", "echo hi", false)

	sh := New(WithAliases(aliases))
	caps, err := sh.Run(context.Background(), "greet => lines")
	c.Assert(err, qt.IsNil)
	c.Assert(caps["lines"], qt.DeepEquals, []any{"hi"})
}

func TestShellRunParseError(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	sh := New()
	_, err := sh.Run(context.Background(), "| foo")
	c.Assert(err, qt.IsNotNil)
}

func TestShellRunStreamedOverridesOnlyThatCall(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	sh := New(WithRunnerOptions(interp.Dir(t.TempDir())))

	var out1 testutil.ConcBuffer
	_, err := sh.RunStreamed(context.Background(), "echo once", nil, &out1, &out1)
	c.Assert(err, qt.IsNil)
	c.Assert(out1.String(), qt.Equals, "once\n")
	// The per-call StdIO option must not have been added to the Shell's own
	// runner options.
	c.Assert(sh.opts, qt.HasLen, 1)
}
