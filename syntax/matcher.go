// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import (
	"fmt"
	"regexp"
	"strings"
)

// a matcher peels one token off the start of s, in priority order. It
// returns ok=false when s does not start with its kind of token at all; it
// returns a non-nil err when s does start with its kind of token but the
// token is malformed (e.g. an unterminated quote), per §4.A: "fail loudly if
// the literal is malformed."
type matcher func(s string) (tok Token, n int, ok bool, err error)

// regexMatcher binds a single compiled pattern to a single kind, the
// simplest and most common kind of matcher.
func regexMatcher(kind Kind, re *regexp.Regexp) matcher {
	return func(s string) (Token, int, bool, error) {
		loc := re.FindStringIndex(s)
		if loc == nil || loc[0] != 0 {
			return Token{}, 0, false, nil
		}
		n := loc[1]
		return Token{Kind: kind, Text: s[:n]}, n, true, nil
	}
}

var (
	reRedirect   = regexp.MustCompile(`^[0-9]*>>?(&[0-9]+)?`)
	reAndOp      = regexp.MustCompile(`^&&`)
	reOrOp       = regexp.MustCompile(`^\|\|`)
	rePipe       = regexp.MustCompile(`^\|`)
	reRightArrow = regexp.MustCompile(`^->`)
	reBoldArrow  = regexp.MustCompile(`^=>`)
	reParenOpen  = regexp.MustCompile(`^\(`)
	reParenClose = regexp.MustCompile(`^\)`)
	reSemicolon  = regexp.MustCompile(`^;`)
	reBackquote  = regexp.MustCompile("^`")
	reDollarName = regexp.MustCompile(`^\$[A-Za-z_][A-Za-z0-9_]*`)
	reSpace      = regexp.MustCompile(`^[ \t\r\n]+`)
)

// matchString implements the string matcher: when input starts with a ' or
// " it consumes one quoted literal, supporting backslash escapes inside
// double quotes. Single-quoted text has no escapes, matching ordinary shell
// semantics.
func matchString(s string) (Token, int, bool, error) {
	if len(s) == 0 {
		return Token{}, 0, false, nil
	}
	q := s[0]
	var kind Kind
	switch q {
	case '\'':
		kind = SingleQuoted
	case '"':
		kind = DoubleQuoted
	default:
		return Token{}, 0, false, nil
	}
	i := 1
	for i < len(s) {
		c := s[i]
		if kind == DoubleQuoted && c == '\\' && i+1 < len(s) {
			i += 2
			continue
		}
		if c == q {
			i++
			return Token{Kind: kind, Text: s[:i]}, i, true, nil
		}
		i++
	}
	return Token{}, len(s), true, fmt.Errorf("reached end of input without closing quote %c", q)
}

// matchDollarBrace implements the expression matcher: when input starts
// with "${" it scans forward honouring balanced {}, looking for the
// matching "}".
func matchDollarBrace(s string) (Token, int, bool, error) {
	if !strings.HasPrefix(s, "${") {
		return Token{}, 0, false, nil
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				n := i + 1
				return Token{Kind: Substitution, Text: s[:n]}, n, true, nil
			}
		}
	}
	return Token{}, len(s), true, fmt.Errorf("reached end of input without a closing } for ${")
}

// specialMatchers holds every matcher except space and the literal-chars
// fallback, in the priority order mandated by §4.A. literal-chars consults
// this same list to know where to stop a literal run.
var specialMatchers = []matcher{
	regexMatcher(Redirect, reRedirect),
	regexMatcher(AndOp, reAndOp),
	regexMatcher(OrOp, reOrOp),
	regexMatcher(Pipe, rePipe),
	regexMatcher(RightArrow, reRightArrow),
	regexMatcher(BoldRightArrow, reBoldArrow),
	regexMatcher(ParenOpen, reParenOpen),
	regexMatcher(ParenClose, reParenClose),
	regexMatcher(Semicolon, reSemicolon),
	regexMatcher(Backquote, reBackquote),
	matchString,
	regexMatcher(Substitution, reDollarName),
	matchDollarBrace,
}

// tryRedirect runs the redirect matcher on its own. Nothing in the package
// calls it: scanOne already tries the redirect matcher first, so a literal
// never starts with digits immediately followed by '>'.
func tryRedirect(s string) (Token, int, bool, error) {
	return regexMatcher(Redirect, reRedirect)(s)
}

// scanOne peels exactly one token off the start of s, following the full
// priority order: special tokens, then space, then a literal-chars run.
func scanOne(s string) (Token, int, error) {
	if len(s) == 0 {
		return Token{Kind: EOF}, 0, nil
	}
	for _, m := range specialMatchers {
		tok, n, ok, err := m(s)
		if err != nil {
			return Token{}, 0, err
		}
		if ok {
			return tok, n, nil
		}
	}
	if loc := reSpace.FindStringIndex(s); loc != nil && loc[0] == 0 {
		n := loc[1]
		return Token{Kind: Space, Text: s[:n]}, n, nil
	}
	// literal-chars: consume runes until the remainder would start a
	// special token or whitespace.
	i := 1
	for i < len(s) {
		rest := s[i:]
		if loc := reSpace.FindStringIndex(rest); loc != nil && loc[0] == 0 {
			break
		}
		stopped := false
		for _, m := range specialMatchers {
			_, _, ok, err := m(rest)
			if err != nil {
				// A malformed quote/expr ahead still ends the literal run
				// here; the error surfaces on the next scan.
				stopped = true
				break
			}
			if ok {
				stopped = true
				break
			}
		}
		if stopped {
			break
		}
		i++
	}
	return Token{Kind: Literal, Text: s[:i]}, i, nil
}
