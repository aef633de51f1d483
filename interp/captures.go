// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import "sync"

// captures is the concurrency-safe backing store for the captures map §6
// describes: "cmd -> name" stores an exit status (int), "cmd => name"
// stores a []any holding strings (lines of byte output) or host objects
// (pycmd output). Assign
// nodes on different pipe branches can complete concurrently, so writes
// are synchronized; per the ordering guarantee in §5, a write always
// happens-before the runner next observes the parent task's completion,
// which holds trivially here since Set is called synchronously before the
// evaluating goroutine returns.
type captures struct {
	mu   sync.Mutex
	vals map[string]any
}

func newCaptures() *captures {
	return &captures{vals: map[string]any{}}
}

func (c *captures) set(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[name] = v
}

func (c *captures) snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.vals))
	for k, v := range c.vals {
		out[k] = v
	}
	return out
}
