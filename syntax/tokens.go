// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package syntax implements the lexer, parser and AST of the hybrid shell's
// command sub-language: string literals, host-expression substitutions,
// backquoted sub-pipelines, redirections, captures and the boolean
// combinators that glue processes together.
package syntax

import "fmt"

// Kind is the set of lexical tokens produced by the [Lexer].
type Kind int

// The list of all possible token kinds.
const (
	Illegal Kind = iota
	EOF

	Space // run of whitespace; usually suppressed, see [Lexer]

	Literal      // bare word characters
	SingleQuoted // 'raw text', including the delimiters
	DoubleQuoted // "raw text", including the delimiters
	Substitution // $name or ${expr}

	Redirect // ⟨digits?⟩>⟨>?⟩(&⟨digits⟩)?

	Pipe           // |
	RightArrow     // ->
	BoldRightArrow // =>
	AndOp          // &&
	OrOp           // ||
	Semicolon      // ;
	ParenOpen      // (
	ParenClose     // )
	Backquote      // `
)

var kindNames = map[Kind]string{
	Illegal:        "illegal",
	EOF:            "EOF",
	Space:          "space",
	Literal:        "literal",
	SingleQuoted:   "single-quoted",
	DoubleQuoted:   "double-quoted",
	Substitution:   "substitution",
	Redirect:       "redirect",
	Pipe:           "|",
	RightArrow:     "->",
	BoldRightArrow: "=>",
	AndOp:          "&&",
	OrOp:           "||",
	Semicolon:      ";",
	ParenOpen:      "(",
	ParenClose:     ")",
	Backquote:      "`",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// literalFamily reports whether a token kind may appear inside an Argument,
// i.e. it is one of the argument-token kinds the parser concatenates without
// an intervening space.
func literalFamily(k Kind) bool {
	switch k {
	case Literal, SingleQuoted, DoubleQuoted, Substitution:
		return true
	}
	return false
}

// spaceSensitive reports whether a token kind is a neighbour that makes an
// adjacent run of whitespace significant (see [Lexer.Next]).
func spaceSensitive(k Kind) bool {
	return literalFamily(k) || k == Backquote
}

// Pos is a byte offset into the tokenized source.
type Pos int

// Token is a single lexical token: its kind, its raw text, and its starting
// position in the source.
type Token struct {
	Kind Kind
	Text string
	Pos  Pos
}

func (t Token) String() string {
	if t.Kind == Literal || t.Kind == Space {
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	}
	return t.Kind.String()
}

// StreamKind labels what kind of data crosses an AST edge, assigned by the
// IO-type diagnoser (package diagnose).
type StreamKind int

const (
	KindNo     StreamKind = iota // NO: neither a byte stream nor an object stream
	KindStream                   // ST: a byte stream
	KindObject                   // PY: a live sequence of host objects
	KindMix                      // internal only: an operator's sides disagree
)

func (k StreamKind) String() string {
	switch k {
	case KindNo:
		return "NO"
	case KindStream:
		return "ST"
	case KindObject:
		return "PY"
	case KindMix:
		return "MIX"
	}
	return "?"
}

// IOTypes records the stream kind of a node's input and output edges.
type IOTypes struct {
	In, Out StreamKind
}
