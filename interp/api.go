// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package interp implements spec components H, I, J, K and L: it schedules
// and executes a diagnosed AST, forking external processes, running
// pycmds on worker goroutines, bridging byte streams and object streams,
// reaping children through a single process-wide reaper, and tracking
// every fd/file/goroutine an invocation opens so it can be torn down
// deterministically on completion or on the first error.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"rookery.dev/hsh/expand"
	"rookery.dev/hsh/pycmd"
	"rookery.dev/hsh/syntax"
)

// Runner executes a diagnosed AST built by packages syntax and diagnose. A
// Runner is configured once via [RunnerOption] values passed to [New]; its
// exported fields should then be treated as read-only, matching the
// teacher's Runner convention.
type Runner struct {
	// Dir is the working directory new processes and relative globs are
	// resolved against. Mutable at runtime via the pycmd options capability
	// (see SPEC_FULL.md's SUPPLEMENTED FEATURES entry), since nothing in this
	// engine's grammar has a built-in "cd". Reads and writes after
	// construction go through currentDir/setDir, since a pycmd's Chdir call
	// can race with sibling tasks still resolving paths against the old
	// value.
	Dir string

	dirMu sync.Mutex

	// Env seeds the external process environment; it is combined with Go's
	// own os.Environ() only if IncludeOSEnv is true.
	Env          []string
	IncludeOSEnv bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Registry *pycmd.Registry
	Scope    expand.Scope

	// HomeDir feeds tilde expansion; "" disables it.
	HomeDir string

	res *resourceTable
}

// RunnerOption configures a Runner in [New].
type RunnerOption func(*Runner) error

// Dir sets the Runner's working directory. path must be non-empty.
func Dir(path string) RunnerOption {
	return func(r *Runner) error {
		if path == "" {
			return errors.New("interp.Dir: empty path")
		}
		r.Dir = path
		return nil
	}
}

// Env appends entries (in "NAME=value" form) to the external process
// environment.
func Env(entries ...string) RunnerOption {
	return func(r *Runner) error {
		r.Env = append(r.Env, entries...)
		return nil
	}
}

// IncludeOSEnv has new processes also inherit the embedding program's own
// environment, with Env entries layered on top.
func IncludeOSEnv(r *Runner) error {
	r.IncludeOSEnv = true
	return nil
}

// StdIO sets the Runner's standard streams. Any nil argument leaves the
// previous value (New's defaults to os.Stdin/os.Stdout/os.Stderr) in place.
func StdIO(in io.Reader, out, errW io.Writer) RunnerOption {
	return func(r *Runner) error {
		if in != nil {
			r.Stdin = in
		}
		if out != nil {
			r.Stdout = out
		}
		if errW != nil {
			r.Stderr = errW
		}
		return nil
	}
}

// WithRegistry installs the pycmd table used to resolve process heads.
func WithRegistry(reg *pycmd.Registry) RunnerOption {
	return func(r *Runner) error {
		r.Registry = reg
		return nil
	}
}

// WithScope installs the host-expression evaluator used for substitutions.
func WithScope(s expand.Scope) RunnerOption {
	return func(r *Runner) error {
		r.Scope = s
		return nil
	}
}

// WithHomeDir sets the directory substituted for a leading "~".
func WithHomeDir(dir string) RunnerOption {
	return func(r *Runner) error {
		r.HomeDir = dir
		return nil
	}
}

// New builds a Runner from opts, applying the teacher's fail-fast
// functional-options convention: the first erroring option aborts
// construction.
func New(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		Dir:    mustGetwd(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		res:    newResourceTable(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("interp.New: %w", err)
		}
	}
	return r, nil
}

func mustGetwd() string {
	d, err := os.Getwd()
	if err != nil {
		return "."
	}
	return d
}

// currentDir returns the Runner's working directory, safe for concurrent
// use alongside setDir.
func (r *Runner) currentDir() string {
	r.dirMu.Lock()
	defer r.dirMu.Unlock()
	return r.Dir
}

// setDir updates the Runner's working directory, as invoked by a pycmd
// through its Options.Chdir capability.
func (r *Runner) setDir(path string) {
	r.dirMu.Lock()
	r.Dir = path
	r.dirMu.Unlock()
}

// chdir backs Options.Chdir for every pycmd this Runner invokes: it
// resolves path against the current directory, confirms it names a real
// directory, and only then commits it.
func (r *Runner) chdir(path string) error {
	dir := path
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(r.currentDir(), dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("chdir: %q is not a directory", dir)
	}
	r.setDir(dir)
	return nil
}

// environ returns the argv-style environment passed to spawned external
// processes.
func (r *Runner) environ() []string {
	if !r.IncludeOSEnv {
		return append([]string(nil), r.Env...)
	}
	return append(os.Environ(), r.Env...)
}

// Run diagnoses nothing itself: root must already have been produced by
// [diagnose.Diagnose]. It executes root to completion, returning the
// capture map described in §6 and a non-nil error only for a call-level
// failure (root-level non-zero exit, or a Lex/Parse/Type/Eval/IO error
// surfacing during execution).
func (r *Runner) Run(ctx context.Context, root syntax.Node) (map[string]any, error) {
	caps := newCaptures()
	r.res = newResourceTable()
	in := stream{Kind: syntax.KindStream, R: r.Stdin}
	out := stream{Kind: syntax.KindStream, W: r.Stdout}
	defer r.res.closeAll()
	exit, err := r.exec(ctx, root, in, out, caps)
	if err != nil {
		return caps.snapshot(), err
	}
	if exit != 0 {
		return caps.snapshot(), &ExecError{Text: fmt.Sprintf("command exited with status %d", exit)}
	}
	return caps.snapshot(), nil
}
