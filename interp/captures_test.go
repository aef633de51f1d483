// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestCapturesSetAndSnapshot(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	caps := newCaptures()
	caps.set("status", 0)
	caps.set("lines", []any{"a", "b"})

	snap := caps.snapshot()
	c.Assert(snap["status"], qt.Equals, 0)
	c.Assert(snap["lines"], qt.DeepEquals, []any{"a", "b"})

	// snapshot is a copy: mutating it must not affect the captures store.
	snap["status"] = 99
	c.Assert(caps.snapshot()["status"], qt.Equals, 0)
}

func TestCapturesConcurrentSet(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	caps := newCaptures()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			caps.set("n", i)
		}()
	}
	wg.Wait()
	_, ok := caps.snapshot()["n"]
	c.Assert(ok, qt.IsTrue)
}
