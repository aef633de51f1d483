// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

import "strings"

// ExpandDoubleQuoted splits the raw inner text of a "…" literal (i.e. with
// the surrounding quotes already stripped, and backslash escapes of \" and
// \\ already the only escapes recognised) into alternating
// [SingleQuoted]/[Substitution] ArgParts, per spec component D. pos is the
// position of the first character of inner within the source, used to
// stamp the synthesized parts.
func ExpandDoubleQuoted(inner string, pos Pos) ([]ArgPart, error) {
	var parts []ArgPart
	var lit strings.Builder
	flushLit := func(litPos Pos) {
		if lit.Len() == 0 {
			return
		}
		s := lit.String()
		parts = append(parts, &SingleQuoted{
			ValuePos: litPos,
			Raw:      "'" + s + "'",
			Value:    s,
		})
		lit.Reset()
	}

	i := 0
	litStart := pos
	for i < len(inner) {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) && (inner[i+1] == '"' || inner[i+1] == '\\') {
			if lit.Len() == 0 {
				litStart = pos + Pos(i)
			}
			lit.WriteByte(inner[i+1])
			i += 2
			continue
		}
		if c != '$' {
			if lit.Len() == 0 {
				litStart = pos + Pos(i)
			}
			lit.WriteByte(c)
			i++
			continue
		}
		// A '$': try $NAME or ${expr}; otherwise it's a literal '$'.
		rest := inner[i:]
		tok, n, err := scanOne(rest)
		if err == nil && tok.Kind == Substitution {
			flushLit(litStart)
			parts = append(parts, substitutionPart(tok, pos+Pos(i)))
			i += n
			continue
		}
		// Lone '$' not followed by a valid name or '{': literal '$'.
		if lit.Len() == 0 {
			litStart = pos + Pos(i)
		}
		lit.WriteByte('$')
		i++
	}
	flushLit(litStart)
	return parts, nil
}

// substitutionPart builds a Substitution ArgPart from a raw $NAME/${expr}
// token, stamping its position.
func substitutionPart(tok Token, pos Pos) *Substitution {
	s := &Substitution{ValuePos: pos}
	if strings.HasPrefix(tok.Text, "${") {
		s.Braced = true
		s.Expr = tok.Text[2 : len(tok.Text)-1]
	} else {
		s.Name = tok.Text[1:]
	}
	return s
}
