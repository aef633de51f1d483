// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"errors"
	"fmt"
)

// AliasEntry is one alias map entry: the literal text it expands to, and
// whether it is a global alias (expandable anywhere) as opposed to a local
// one (expandable only in head position, i.e. the first word of a process).
type AliasEntry struct {
	Expansion string
	Global    bool
}

// AliasTable looks up alias expansions by name. [AliasMap] is the trivial
// implementation.
type AliasTable interface {
	Lookup(name string) (AliasEntry, bool)
}

// AliasMap is a plain map-backed [AliasTable].
type AliasMap map[string]AliasEntry

func (m AliasMap) Lookup(name string) (AliasEntry, bool) {
	e, ok := m[name]
	return e, ok
}

// ErrEndOfIteration is returned by [Lexer.Next] for every call after the
// single [EOF] token has already been yielded.
var ErrEndOfIteration = errors.New("syntax: read past end of token stream")

// LexError is returned for a malformed token: a bad string literal or an
// unclosed "${".
type LexError struct {
	Pos  Pos
	Text string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%d: %s", e.Pos, e.Text)
}

// Lexer drives the token matchers over a source string, producing a
// lookahead-1 stream that suppresses insignificant whitespace and expands
// aliases in head position. It implements spec components A, B and (via
// [ExpandDoubleQuoted]) D.
type Lexer struct {
	src string
	pos Pos // byte offset of the next unscanned byte

	curKind Kind // kind of the last token returned by Next
	started bool

	lookahead  *Token // one token of raw lookahead, used for space suppression
	pending    []Token
	expandedAt map[string]bool // active alias-expansion cycle guard, shared across nested lexers

	aliases        AliasTable
	atProcessStart bool
}

// NewLexer returns a Lexer over src. aliases may be nil, meaning no alias
// expansion is performed.
func NewLexer(src string, aliases AliasTable) *Lexer {
	return &Lexer{
		src:            src,
		aliases:        aliases,
		atProcessStart: true,
		expandedAt:     map[string]bool{},
	}
}

func (l *Lexer) rawScan() (Token, error) {
	if l.lookahead != nil {
		t := *l.lookahead
		l.lookahead = nil
		return t, nil
	}
	if len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t, nil
	}
	tok, n, err := scanOne(l.src[l.pos:])
	if err != nil {
		return Token{}, &LexError{Pos: l.pos, Text: err.Error()}
	}
	tok.Pos = l.pos
	l.pos += Pos(n)
	return tok, nil
}

// Next returns the next significant token: whitespace is suppressed unless
// both of its neighbours are space-sensitive, and head-position literals are
// expanded against the alias table. Exactly one EOF token is produced;
// calling Next again afterwards returns [ErrEndOfIteration].
func (l *Lexer) Next() (Token, error) {
	if l.started && l.curKind == EOF {
		return Token{}, ErrEndOfIteration
	}
	for {
		t, err := l.rawScan()
		if err != nil {
			return Token{}, err
		}
		if t.Kind == Space {
			nt, err := l.rawScan()
			if err != nil {
				return Token{}, err
			}
			l.lookahead = &nt
			if spaceSensitive(l.curKind) && spaceSensitive(nt.Kind) {
				l.started = true
				l.curKind = Space
				return t, nil
			}
			// Suppressed: loop around and classify nt instead.
			continue
		}
		return l.emit(t)
	}
}

// emit applies head-position alias expansion to t and updates lexer state.
func (l *Lexer) emit(t Token) (Token, error) {
	if t.Kind == Literal && !literalFamily(l.curKind) {
		if entry, ok := l.aliasLookup(t.Text); ok {
			allowed := entry.Global || l.atProcessStart
			if allowed && !l.expandedAt[t.Text] {
				toks, err := l.expandAlias(t.Text, entry.Expansion)
				if err != nil {
					return Token{}, err
				}
				toks = stampPos(toks, t.Pos)
				if len(toks) == 0 {
					// Empty expansion: this word vanishes; move on to
					// whatever comes after it.
					l.started = true
					l.curKind = t.Kind
					return l.Next()
				}
				first := toks[0]
				rest := toks[1:]
				l.pending = append(rest, l.pending...)
				t = first
			}
		}
	}
	wasProcessStart := l.atProcessStart
	switch t.Kind {
	case Semicolon, AndOp, OrOp, Pipe, ParenOpen:
		l.atProcessStart = true
	default:
		l.atProcessStart = false
	}
	_ = wasProcessStart
	l.started = true
	l.curKind = t.Kind
	return t, nil
}

func (l *Lexer) aliasLookup(name string) (AliasEntry, bool) {
	if l.aliases == nil {
		return AliasEntry{}, false
	}
	return l.aliases.Lookup(name)
}

// expandAlias retokenizes an alias's expansion text, recursively expanding
// any further aliases it names, refusing cycles via the shared
// expandedAt set.
func (l *Lexer) expandAlias(name, expansion string) ([]Token, error) {
	l.expandedAt[name] = true
	defer delete(l.expandedAt, name)

	sub := NewLexer(expansion, l.aliases)
	sub.expandedAt = l.expandedAt
	sub.atProcessStart = true

	var out []Token
	for {
		t, err := sub.Next()
		if err != nil {
			return nil, err
		}
		if t.Kind == EOF {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// stampPos sets every token in toks to pos; emit passes the position of the
// alias invocation, so that every token produced by an expansion is reported
// there rather than inside the (often synthetic) expansion text.
func stampPos(toks []Token, pos Pos) []Token {
	for i := range toks {
		toks[i].Pos = pos
	}
	return toks
}
