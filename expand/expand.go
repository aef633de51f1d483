// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package expand implements spec component G: it resolves a parsed
// [syntax.Argument] — substitutions, backquoted sub-pipelines and glob
// wildcards — into the scalar value or list of strings that the process
// executor (package interp) feeds to a child program or pycmd.
package expand

import (
	"fmt"
	"strconv"
	"strings"

	"rookery.dev/hsh/pattern"
	"rookery.dev/hsh/syntax"
)

// Scope resolves free names and host expressions against the composed
// dictionary described in §4.G.2: the caller's locals, globals and the
// process environment, in that priority order. Callers typically implement
// this over whatever opaque globals/locals handles their embedding API
// passed to run.
type Scope interface {
	// Lookup resolves a bare $name. ok is false for an undefined name.
	Lookup(name string) (any, bool)
	// Eval evaluates the text inside ${...} as a host expression.
	Eval(expr string) (any, error)
}

// BackquoteRunner executes an already-diagnosed backquoted sub-AST and
// collects its standard output as complete lines, stripped of one trailing
// "\r?\n" each, per §4.G.1. Package interp implements this.
type BackquoteRunner interface {
	RunBackquote(body syntax.Node) ([]string, error)
}

// Config bundles everything argument evaluation needs beyond the AST.
type Config struct {
	Scope      Scope
	Backquotes BackquoteRunner
	// HomeDir is substituted for a bare leading "~" or "~/..." per the
	// supplemented tilde-expansion feature; left "" disables expansion.
	HomeDir string
	// Dir is the directory glob patterns are resolved relative to.
	Dir string
}

// EvalError is raised for an undefined substitution name, a host expression
// evaluation failure, or a glob argument whose pieces can't be concatenated
// as strings.
type EvalError struct {
	Pos  syntax.Pos
	Text string
}

func (e *EvalError) Error() string { return fmt.Sprintf("%d: %s", e.Pos, e.Text) }

// Value is the result of evaluating one [syntax.Argument]: either Scalar is
// set (a single value, possibly a non-string native type carried through a
// lone substitution) or List is set (a list of strings, for a glob
// expansion or a multi-word backquote standing alone in the argument).
type Value struct {
	IsList bool
	Scalar any
	List   []string
}

// piece is one evaluated, not-yet-merged fragment of an argument.
type piece struct {
	str      string
	native   any
	isNative bool
	isLit    bool // originated from a bare *syntax.Lit, eligible to trigger globbing
}

// EvalArgument evaluates arg per §4.G's five steps.
func EvalArgument(arg syntax.Argument, cfg Config) (Value, error) {
	if len(arg.Parts) == 1 {
		if bq, ok := arg.Parts[0].(*syntax.Backquote); ok {
			words, err := runBackquote(bq, cfg)
			if err != nil {
				return Value{}, err
			}
			return Value{IsList: true, List: words}, nil
		}
	}

	pieces, globbable, err := collectPieces(arg, cfg)
	if err != nil {
		return Value{}, err
	}
	if len(pieces) == 0 {
		return Value{Scalar: ""}, nil
	}

	if globbable {
		pat, err := concatForGlob(pieces)
		if err != nil {
			return Value{}, &EvalError{Pos: arg.Pos(), Text: err.Error()}
		}
		pat = expandTilde(pat, cfg.HomeDir)
		matches, err := pattern.Expand(cfg.Dir, pat)
		if err != nil {
			return Value{}, &EvalError{Pos: arg.Pos(), Text: err.Error()}
		}
		return Value{IsList: true, List: matches}, nil
	}

	if len(pieces) == 1 {
		p := pieces[0]
		if p.isNative {
			return Value{Scalar: p.native}, nil
		}
		return Value{Scalar: expandTilde(p.str, cfg.HomeDir)}, nil
	}

	var sb strings.Builder
	for _, p := range pieces {
		if p.isNative {
			sb.WriteString(Stringify(p.native))
		} else {
			sb.WriteString(p.str)
		}
	}
	return Value{Scalar: expandTilde(sb.String(), cfg.HomeDir)}, nil
}

// collectPieces resolves every part of arg except a sole stand-alone
// backquote (handled separately by EvalArgument) into evaluated pieces. A
// backquote that shares the argument with other parts contributes its
// words joined by a single space, as a non-literal (non-glob-triggering)
// piece — a deliberate simplification of full word-splitting adjacency
// rules, documented in DESIGN.md.
func collectPieces(arg syntax.Argument, cfg Config) ([]piece, bool, error) {
	var pieces []piece
	globbable := false
	for _, part := range arg.Parts {
		switch x := part.(type) {
		case *syntax.Lit:
			if pattern.HasMeta(x.Value) {
				globbable = true
			}
			pieces = append(pieces, piece{str: x.Value, isLit: true})
		case *syntax.SingleQuoted:
			pieces = append(pieces, piece{str: x.Value})
		case *syntax.Substitution:
			v, err := resolveSubstitution(x, cfg)
			if err != nil {
				return nil, false, err
			}
			pieces = append(pieces, piece{native: v, isNative: true})
		case *syntax.Backquote:
			words, err := runBackquote(x, cfg)
			if err != nil {
				return nil, false, err
			}
			pieces = append(pieces, piece{str: strings.Join(words, " ")})
		default:
			return nil, false, &EvalError{Pos: part.Pos(), Text: fmt.Sprintf("unhandled argument part %T", part)}
		}
	}
	return pieces, globbable, nil
}

func runBackquote(bq *syntax.Backquote, cfg Config) ([]string, error) {
	if bq.Body == nil {
		return nil, nil
	}
	if cfg.Backquotes == nil {
		return nil, &EvalError{Pos: bq.Pos(), Text: "no backquote runner configured"}
	}
	lines, err := cfg.Backquotes.RunBackquote(bq.Body)
	if err != nil {
		return nil, err
	}
	joined := strings.Join(lines, " ")
	return strings.Fields(joined), nil
}

func resolveSubstitution(s *syntax.Substitution, cfg Config) (any, error) {
	if cfg.Scope == nil {
		return nil, &EvalError{Pos: s.Pos(), Text: "no host scope configured"}
	}
	if s.Braced {
		v, err := cfg.Scope.Eval(s.Expr)
		if err != nil {
			return nil, &EvalError{Pos: s.Pos(), Text: err.Error()}
		}
		return v, nil
	}
	v, ok := cfg.Scope.Lookup(s.Name)
	if !ok {
		return nil, &EvalError{Pos: s.Pos(), Text: fmt.Sprintf("undefined name %q", s.Name)}
	}
	return v, nil
}

// concatForGlob concatenates pieces into the raw pattern text, protecting
// every non-literal piece's glob metacharacters so that only the bare
// *'s/?'s the user actually typed remain active wildcards (§4.G step 5).
func concatForGlob(pieces []piece) (string, error) {
	var sb strings.Builder
	for _, p := range pieces {
		switch {
		case p.isLit:
			sb.WriteString(p.str)
		case p.isNative:
			s, ok := p.native.(string)
			if !ok {
				return "", fmt.Errorf("glob argument piece is not a string: %v", p.native)
			}
			sb.WriteString(pattern.QuoteMeta(s))
		default:
			sb.WriteString(pattern.QuoteMeta(p.str))
		}
	}
	return sb.String(), nil
}

// expandTilde replaces a leading "~" (whole field) or "~/" prefix with home.
// It never expands "~user" forms, since the engine has no host-independent
// way to resolve another account's home directory.
func expandTilde(s, home string) string {
	if home == "" || len(s) == 0 || s[0] != '~' {
		return s
	}
	if s == "~" {
		return home
	}
	if strings.HasPrefix(s, "~/") {
		return home + s[1:]
	}
	return s
}

// Stringify renders an arbitrary host value for inclusion in an external
// argv, per §6: lists/tuples expand element-wise and are stringified per
// element and space-joined; everything else uses a default conversion.
func Stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(x, " ")
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, " ")
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Args flattens a process's evaluated argument [Value]s into a plain argv,
// per §4.G's "a scalar that is a list/tuple of values downstream expands
// into multiple process arguments when the process is externally executed".
func Args(values []Value) []string {
	var out []string
	for _, v := range values {
		if v.IsList {
			out = append(out, v.List...)
			continue
		}
		switch s := v.Scalar.(type) {
		case []string:
			out = append(out, s...)
		case []any:
			for _, e := range s {
				out = append(out, Stringify(e))
			}
		default:
			out = append(out, Stringify(v.Scalar))
		}
	}
	return out
}
