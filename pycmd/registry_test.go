// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package pycmd

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRegistryLookup(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	reg := NewRegistry()

	_, ok := reg.Lookup("echo")
	c.Assert(ok, qt.IsFalse)

	reg.Register(Cmd{
		Name:    "echo",
		InKind:  No,
		OutKind: Python,
		Run: func(ctx context.Context, args []any, input any, opts Options, res Result) error {
			for _, a := range args {
				if err := res.Emit(a); err != nil {
					return err
				}
			}
			return nil
		},
	})

	cmd, ok := reg.Lookup("echo")
	c.Assert(ok, qt.IsTrue)
	c.Assert(cmd.Name, qt.Equals, "echo")

	in, out, ok := reg.Kinds("echo")
	c.Assert(ok, qt.IsTrue)
	c.Assert(in, qt.Equals, KindNo)
	c.Assert(out, qt.Equals, KindObject)

	_, _, ok = reg.Kinds("nope")
	c.Assert(ok, qt.IsFalse)

	c.Assert(reg.Names(), qt.DeepEquals, []string{"echo"})
}

func TestRegistryConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	reg := NewRegistry()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			reg.Register(Cmd{Name: "x"})
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		reg.Lookup("x")
	}
	<-done
	_, ok := reg.Lookup("x")
	c.Assert(ok, qt.IsTrue)
}
