// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package pycmd implements spec component F: the name-to-callable table of
// host-defined commands and the input/output stream-kind metadata the
// diagnoser (package diagnose) needs to type each [*syntax.Process].
package pycmd

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// StreamKind mirrors syntax.StreamKind without importing package syntax, so
// that pycmd stays usable by callers who only need to register and invoke
// callables without pulling in the parser.
type StreamKind int

const (
	KindNo StreamKind = iota
	KindStream
	KindObject
)

// DeclKind is the surface vocabulary a registrant uses: "Python" is the
// default object stream, "File" is a byte stream, "No" is neither.
type DeclKind int

const (
	Python DeclKind = iota
	File
	No
)

func (d DeclKind) streamKind() StreamKind {
	switch d {
	case File:
		return KindStream
	case No:
		return KindNo
	default:
		return KindObject
	}
}

// Options exposes the caller's host scopes to a running Cmd, per §6's
// "options exposes globals() and locals() of the caller", plus the
// cwd-mutation capability a `cd`-like pycmd needs since the grammar itself
// has no built-in directory change.
type Options struct {
	Globals func() map[string]any
	Locals  func() map[string]any

	// Chdir changes the working directory new processes and relative globs
	// are resolved against for the rest of the invocation. path may be
	// relative to the current directory. Nil when the embedder hasn't wired
	// an interp.Runner (or equivalent) behind it.
	Chdir func(path string) error
}

// Result is what a Cmd produces: either a stream of host objects (when
// OutKind is Python) or a stream of complete lines (when OutKind is File).
// Either way elements arrive through Emit, and the Cmd must close the
// channel implicit in returning from Run.
type Result struct {
	// Emit is called once per produced element, in order. The Cmd must stop
	// emitting and return promptly if ctx is cancelled.
	Emit func(v any) error
}

// Cmd is a single registered host callable: `fn(args, input, options)`,
// yielding elements via Result.Emit instead of returning an iterable
// directly, which maps more naturally onto Go's lack of generators.
//
// input is nil when InKind is No; a <-chan any (one object per receive,
// closed at end of stream) when InKind is Python; an io.Reader when InKind
// is File.
type Cmd struct {
	Name    string
	InKind  DeclKind
	OutKind DeclKind
	Run     func(ctx context.Context, args []any, input any, opts Options, res Result) error
}

// Registry is a name→Cmd table. The zero value is ready to use. A Registry
// is safe for concurrent Lookup/Register, matching the process-wide-singleton
// guidance in §9 (explicit module, not a hidden global) while still letting
// tests stand up private instances.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Cmd
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{cmds: map[string]Cmd{}}
}

// Register adds cmd under cmd.Name, replacing any previous registration of
// the same name.
func (r *Registry) Register(cmd Cmd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmds == nil {
		r.cmds = map[string]Cmd{}
	}
	r.cmds[cmd.Name] = cmd
}

// Lookup returns the Cmd registered under name, if any.
func (r *Registry) Lookup(name string) (Cmd, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cmds[name]
	return c, ok
}

// Names returns every registered name, sorted, mainly for diagnostics and
// tests.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.cmds))
	for n := range r.cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Kinds returns the diagnosis-facing (in, out) stream kinds declared for
// name. The pair (KindObject, KindObject) is returned, with ok=false,
// when name isn't registered — the diagnoser's caller is responsible for
// treating an unregistered head as a plain external process instead.
func (r *Registry) Kinds(name string) (in, out StreamKind, ok bool) {
	c, found := r.Lookup(name)
	if !found {
		return KindObject, KindObject, false
	}
	return c.InKind.streamKind(), c.OutKind.streamKind(), true
}

// ErrNoSuchCmd describes a command name that was never registered. No
// function in this package returns it; Lookup and Kinds report an unknown
// name through their ok result instead.
type ErrNoSuchCmd struct{ Name string }

func (e *ErrNoSuchCmd) Error() string { return fmt.Sprintf("pycmd: no such command %q", e.Name) }
