// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package shell is the embedding surface described in §6: it wires
// together the parser, the diagnoser and the task runner behind a single
// Run call, and owns the supplemented persistent-alias-table feature.
package shell

import (
	"context"
	"fmt"
	"io"
	"sync"

	"rookery.dev/hsh/diagnose"
	"rookery.dev/hsh/expand"
	"rookery.dev/hsh/interp"
	"rookery.dev/hsh/pycmd"
	"rookery.dev/hsh/syntax"
)

// AliasTable is a concurrency-safe, mutable [syntax.AliasTable]. Unlike
// [syntax.AliasMap], entries can be added and removed after construction,
// matching the supplemented "persistent alias table survives across Run
// calls on the same Shell" feature that the distilled grammar spec is
// silent on but original_source/pysh's alias command implies.
type AliasTable struct {
	mu      sync.RWMutex
	entries map[string]syntax.AliasEntry
}

// NewAliasTable returns an empty, ready-to-use alias table.
func NewAliasTable() *AliasTable {
	return &AliasTable{entries: map[string]syntax.AliasEntry{}}
}

// Lookup implements [syntax.AliasTable].
func (t *AliasTable) Lookup(name string) (syntax.AliasEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[name]
	return e, ok
}

// Set installs or replaces the alias named name.
func (t *AliasTable) Set(name, expansion string, global bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[name] = syntax.AliasEntry{Expansion: expansion, Global: global}
}

// Unset removes the alias named name, if any.
func (t *AliasTable) Unset(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, name)
}

// Shell bundles everything a sequence of [Shell.Run] calls share: the
// pycmd registry, the host-expression scope, the persistent alias table
// and the runner configuration. It corresponds to one embedding "session"
// per §6.
type Shell struct {
	Registry *pycmd.Registry
	Scope    expand.Scope
	Aliases  *AliasTable

	opts []interp.RunnerOption
}

// Option configures a Shell in [New].
type Option func(*Shell)

// WithRegistry installs the pycmd table used to resolve process heads.
func WithRegistry(reg *pycmd.Registry) Option {
	return func(s *Shell) { s.Registry = reg }
}

// WithScope installs the host-expression evaluator used for substitutions.
func WithScope(scope expand.Scope) Option {
	return func(s *Shell) { s.Scope = scope }
}

// WithAliases installs a pre-populated alias table instead of a fresh one.
func WithAliases(t *AliasTable) Option {
	return func(s *Shell) { s.Aliases = t }
}

// WithRunnerOptions passes additional [interp.RunnerOption] values through
// to every [interp.Runner] this Shell constructs (working directory,
// environment, standard streams, home directory).
func WithRunnerOptions(opts ...interp.RunnerOption) Option {
	return func(s *Shell) { s.opts = append(s.opts, opts...) }
}

// New returns a ready-to-use Shell.
func New(opts ...Option) *Shell {
	s := &Shell{
		Registry: pycmd.NewRegistry(),
		Aliases:  NewAliasTable(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run implements §6's top-level entry point: lex, parse, diagnose and
// execute src, returning the capture map populated by any "-> name" or
// "=> name" in it. A non-nil error is either a [syntax.LexError] /
// [*syntax.ParseError] from parsing, a [*diagnose.TypeError] from
// diagnosis, or an execution-time error from package interp.
func (s *Shell) Run(ctx context.Context, src string) (map[string]any, error) {
	root, err := syntax.Parse(src, s.Aliases)
	if err != nil {
		return nil, fmt.Errorf("shell: parsing: %w", err)
	}

	diagnosed, err := diagnose.Diagnose(root, diagnose.RegistryResolver{Registry: s.Registry})
	if err != nil {
		return nil, fmt.Errorf("shell: diagnosing: %w", err)
	}

	r, err := interp.New(append([]interp.RunnerOption{
		interp.WithRegistry(s.Registry),
		interp.WithScope(s.Scope),
	}, s.opts...)...)
	if err != nil {
		return nil, fmt.Errorf("shell: configuring runner: %w", err)
	}

	return r.Run(ctx, diagnosed)
}

// RunStreamed is [Shell.Run] with the standard streams for just this one
// call overridden, leaving the Shell's own configured streams (if any) as
// the default for future calls.
func (s *Shell) RunStreamed(ctx context.Context, src string, in io.Reader, out, errW io.Writer) (map[string]any, error) {
	s2 := *s
	s2.opts = append(append([]interp.RunnerOption(nil), s.opts...), interp.StdIO(in, out, errW))
	return s2.Run(ctx, src)
}
