// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"fmt"
	"regexp"
)

// ParseError is returned for a malformed command line: a mismatched
// parenthesis or backquote, a '->'/'=>' not followed by a host identifier,
// '>>' combined with '&n', or an unexpected token where an argument was
// required.
type ParseError struct {
	Pos  Pos
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d: %s", e.Pos, e.Text)
}

var reIdent = regexp.MustCompile(`^[_A-Za-z][_A-Za-z0-9]*$`)

var reRedirectFields = regexp.MustCompile(`^([0-9]*)>(>?)(&([0-9]+))?$`)

// parser implements the recursive-descent grammar of spec component C over
// a [Lexer].
type parser struct {
	lex *Lexer
	cur Token
	err error

	bqDepth int // >0 while parsing inside a backquoted sub-pipeline
}

// Parse parses a full command line into its AST. aliases may be nil.
func Parse(src string, aliases AliasTable) (Node, error) {
	p := &parser{lex: NewLexer(src, aliases)}
	p.next()
	if p.err != nil {
		return nil, p.err
	}
	if p.cur.Kind == EOF {
		return nil, &ParseError{Pos: p.cur.Pos, Text: "empty command"}
	}
	n := p.parseExpr()
	if p.err != nil {
		return nil, p.err
	}
	if p.cur.Kind != EOF {
		p.errorf(p.cur.Pos, "unexpected %s after command", p.cur)
		return nil, p.err
	}
	return n, nil
}

func (p *parser) next() {
	if p.err != nil {
		return
	}
	t, err := p.lex.Next()
	if err != nil {
		p.err = err
		p.cur = Token{Kind: EOF}
		return
	}
	p.cur = t
}

func (p *parser) errorf(pos Pos, format string, args ...any) {
	if p.err == nil {
		p.err = &ParseError{Pos: pos, Text: fmt.Sprintf(format, args...)}
	}
	p.cur = Token{Kind: EOF}
}

// atEnd reports whether cur cannot continue the current Expr/AndOr/Piped/
// Process production: end of input, or (while inside a backquote) the
// closing backquote.
func (p *parser) atEnd() bool {
	if p.cur.Kind == EOF {
		return true
	}
	if p.bqDepth > 0 && p.cur.Kind == Backquote {
		return true
	}
	return false
}

func argStart(k Kind) bool {
	return literalFamily(k) || k == Backquote
}

// parseExpr implements: Expr := AndOr (';' AndOr)*
func (p *parser) parseExpr() Node {
	left := p.parseAndOr()
	for p.err == nil && p.cur.Kind == Semicolon {
		p.next()
		if p.err != nil {
			return left
		}
		if p.atEnd() {
			p.errorf(p.cur.Pos, "';' can only be used between statements, not at the end")
			return left
		}
		right := p.parseAndOr()
		left = &BinaryOp{Op: OpSeq, Left: left, Right: right}
	}
	return left
}

// parseAndOr implements: AndOr := Piped (('&&'|'||') Piped)*
func (p *parser) parseAndOr() Node {
	left := p.parsePiped()
	for p.err == nil {
		var op BinOpKind
		switch p.cur.Kind {
		case AndOp:
			op = OpAnd
		case OrOp:
			op = OpOr
		default:
			return left
		}
		opTok := p.cur
		p.next()
		if p.err != nil {
			return left
		}
		if p.atEnd() {
			p.errorf(opTok.Pos, "%s can only be used between statements, not at the end", opTok.Kind)
			return left
		}
		right := p.parsePiped()
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left
}

// parsePiped implements: Piped := Cmd ('|' Cmd | '->' NAME)*
func (p *parser) parsePiped() Node {
	left := p.parseCmd()
	for p.err == nil {
		switch p.cur.Kind {
		case Pipe:
			opTok := p.cur
			p.next()
			if p.err != nil {
				return left
			}
			if p.atEnd() {
				p.errorf(opTok.Pos, "'|' can only be used between commands, not at the end")
				return left
			}
			right := p.parseCmd()
			left = &BinaryOp{Op: OpPipe, Left: left, Right: right}
		case RightArrow:
			p.next()
			if p.err != nil {
				return left
			}
			name := p.expectIdent("'->'")
			if p.err != nil {
				return left
			}
			left = &Assign{Cmd: left, Name: name}
		default:
			return left
		}
	}
	return left
}

// parseCmd implements: Cmd := '(' Expr ')' | Process
func (p *parser) parseCmd() Node {
	if p.cur.Kind == ParenOpen {
		openPos := p.cur.Pos
		p.next()
		if p.err != nil {
			return nil
		}
		if p.cur.Kind == ParenClose {
			p.errorf(openPos, "empty parentheses")
			return nil
		}
		inner := p.parseExpr()
		if p.err != nil {
			return inner
		}
		if p.cur.Kind != ParenClose {
			p.errorf(openPos, "reached %s without matching ( with )", p.cur.Kind)
			return inner
		}
		p.next()
		return inner
	}
	return p.parseProcess()
}

// parseProcess implements:
// Process := Arg (SPACE Arg | Redirect | '=>' NAME)*
func (p *parser) parseProcess() Node {
	if !argStart(p.cur.Kind) {
		p.invalidStart()
		return nil
	}
	startPos := p.cur.Pos
	proc := &Process{ProcPos: startPos}
	proc.Args = append(proc.Args, p.parseArg())
	for p.err == nil {
		switch {
		case p.cur.Kind == Space:
			p.next()
			if p.err != nil {
				return proc
			}
			if p.atEnd() {
				return proc
			}
			if !argStart(p.cur.Kind) {
				p.invalidStart()
				return proc
			}
			proc.Args = append(proc.Args, p.parseArg())
		case p.cur.Kind == Redirect:
			r := p.parseRedirect()
			proc.Redirects = append(proc.Redirects, r)
		case p.cur.Kind == BoldRightArrow:
			p.next()
			if p.err != nil {
				return proc
			}
			name := p.expectIdent("'=>'")
			if p.err != nil {
				return proc
			}
			proc.Redirects = append(proc.Redirects, Redirect{Kind: RedirCapture, VarName: name})
		default:
			return proc
		}
	}
	return proc
}

// parseArg implements: Arg := (LiteralFamily | Backquote)+
func (p *parser) parseArg() Argument {
	var arg Argument
	for p.err == nil && argStart(p.cur.Kind) && !p.atEnd() {
		switch p.cur.Kind {
		case Literal:
			arg.Parts = append(arg.Parts, &Lit{ValuePos: p.cur.Pos, Value: p.cur.Text})
			p.next()
		case SingleQuoted:
			raw := p.cur.Text
			arg.Parts = append(arg.Parts, &SingleQuoted{
				ValuePos: p.cur.Pos,
				Raw:      raw,
				Value:    raw[1 : len(raw)-1],
			})
			p.next()
		case DoubleQuoted:
			raw := p.cur.Text
			inner := raw[1 : len(raw)-1]
			parts, err := ExpandDoubleQuoted(inner, p.cur.Pos+1)
			if err != nil {
				p.errorf(p.cur.Pos, "%v", err)
				return arg
			}
			arg.Parts = append(arg.Parts, parts...)
			p.next()
		case Substitution:
			arg.Parts = append(arg.Parts, substitutionPart(p.cur, p.cur.Pos))
			p.next()
		case Backquote:
			arg.Parts = append(arg.Parts, p.parseBackquote())
		}
	}
	return arg
}

// parseBackquote implements: Backquote := '`' Expr '`'
//
// Per §9's resolution of the space-around-backquote open question: leading
// and trailing space tokens immediately inside the backquotes are
// suppressed; elsewhere, space is significant as usual.
func (p *parser) parseBackquote() *Backquote {
	openPos := p.cur.Pos
	p.next()
	if p.err != nil {
		return &Backquote{ValuePos: openPos}
	}
	if p.cur.Kind == Space {
		p.next()
	}
	p.bqDepth++
	var body Node
	if p.err == nil && p.cur.Kind != Backquote {
		body = p.parseExpr()
	}
	p.bqDepth--
	if p.err != nil {
		return &Backquote{ValuePos: openPos, Body: body}
	}
	if p.cur.Kind == Space {
		p.next()
	}
	if p.cur.Kind != Backquote {
		p.errorf(openPos, "reached %s without closing backquote", p.cur.Kind)
		return &Backquote{ValuePos: openPos, Body: body}
	}
	p.next()
	return &Backquote{ValuePos: openPos, Body: body}
}

// parseRedirect parses a single Redirect token (already matched by the
// lexer) plus, for the file form, its following target Argument.
func (p *parser) parseRedirect() Redirect {
	tok := p.cur
	m := reRedirectFields.FindStringSubmatch(tok.Text)
	if m == nil {
		p.errorf(tok.Pos, "malformed redirect %q", tok.Text)
		return Redirect{}
	}
	srcFD := 1
	if m[1] != "" {
		srcFD = atoiMust(m[1])
	}
	appendMode := m[2] == ">"
	p.next()
	if p.err != nil {
		return Redirect{}
	}
	if m[4] != "" {
		if appendMode {
			p.errorf(tok.Pos, "'>>' cannot be combined with '&%s'", m[4])
			return Redirect{}
		}
		return Redirect{RedirPos: tok.Pos, Kind: RedirDup, SrcFD: srcFD, DstFD: atoiMust(m[4])}
	}
	if !argStart(p.cur.Kind) {
		p.errorf(tok.Pos, "redirect %q requires a target", tok.Text)
		return Redirect{}
	}
	target := p.parseArg()
	return Redirect{RedirPos: tok.Pos, Kind: RedirFile, Append: appendMode, SrcFD: srcFD, Target: target}
}

func (p *parser) expectIdent(context string) string {
	if p.cur.Kind != Literal || !reIdent.MatchString(p.cur.Text) {
		p.errorf(p.cur.Pos, "%s must be followed by a host identifier", context)
		return ""
	}
	name := p.cur.Text
	p.next()
	return name
}

func (p *parser) invalidStart() {
	switch p.cur.Kind {
	case Semicolon, AndOp, OrOp, Pipe, RightArrow, BoldRightArrow:
		p.errorf(p.cur.Pos, "%s can only immediately follow a command", p.cur.Kind)
	case ParenClose:
		p.errorf(p.cur.Pos, "%s can only be used to close a parenthesized command", p.cur.Kind)
	default:
		p.errorf(p.cur.Pos, "%s is not a valid start for a command", p.cur.Kind)
	}
}

func atoiMust(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
