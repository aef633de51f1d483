// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import "fmt"

// IOError wraps an open failure, a pipe-exhaustion condition, or a broken
// redirect target (§7).
type IOError struct {
	Text string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("interp: io error: %s: %v", e.Text, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// ExecError wraps a non-zero child exit, an exec failure, or a pycmd
// exception surfacing at the root of the tree (§7).
type ExecError struct {
	Text string
	Err  error
}

func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("interp: exec error: %s: %v", e.Text, e.Err)
	}
	return fmt.Sprintf("interp: exec error: %s", e.Text)
}
func (e *ExecError) Unwrap() error { return e.Err }
