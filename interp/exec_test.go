// Copyright (c) 2019, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build unix

package interp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	qt "github.com/frankban/quicktest"

	"rookery.dev/hsh/diagnose"
	"rookery.dev/hsh/syntax"
)

// TestRunnerPtyPassthrough exercises fileForWriter's *os.File passthrough
// path against a real pseudo-terminal rather than an os.Pipe, so that an
// external process's stdout reaches the controlling terminal directly
// instead of through a copying goroutine.
func TestRunnerPtyPassthrough(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	master, slave, err := pty.Open()
	c.Assert(err, qt.IsNil)
	defer master.Close()
	defer slave.Close()

	r, err := New(StdIO(strings.NewReader(""), slave, slave))
	c.Assert(err, qt.IsNil)

	root, err := syntax.Parse("echo hello", nil)
	c.Assert(err, qt.IsNil)
	diagnosed, err := diagnose.Diagnose(root, diagnose.RegistryResolver{})
	c.Assert(err, qt.IsNil)

	runDone := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), diagnosed)
		runDone <- err
	}()

	master.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 256)
	n, err := master.Read(buf)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(buf[:n]), "hello"), qt.IsTrue)

	c.Assert(<-runDone, qt.IsNil)
}
