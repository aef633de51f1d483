// Package testutil holds small helpers for the module's test suites; at
// present only package shell's tests use it.
package testutil

import (
	"bytes"
	"sync"
)

// ConcBuffer wraps a bytes.Buffer in a mutex so that concurrent writes to it
// (from bridge threads, pycmd worker goroutines and the reaper) don't upset
// the race detector.
type ConcBuffer struct {
	buf bytes.Buffer
	sync.Mutex
}

func (c *ConcBuffer) Write(p []byte) (int, error) {
	c.Lock()
	n, err := c.buf.Write(p)
	c.Unlock()
	return n, err
}

func (c *ConcBuffer) WriteString(s string) (int, error) {
	c.Lock()
	n, err := c.buf.WriteString(s)
	c.Unlock()
	return n, err
}

func (c *ConcBuffer) String() string {
	c.Lock()
	s := c.buf.String()
	c.Unlock()
	return s
}

func (c *ConcBuffer) Reset() {
	c.Lock()
	c.buf.Reset()
	c.Unlock()
}
