// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package diagnose implements spec component E: it walks a parsed AST and
// labels every node with the stream kinds ([syntax.StreamKind]) that flow
// in and out of it, inserting [*syntax.ProxyPyOutToNative] bridge nodes
// wherever an object-stream producer feeds a byte-stream consumer.
package diagnose

import (
	"fmt"

	"rookery.dev/hsh/pycmd"
	"rookery.dev/hsh/syntax"
)

// Resolver answers whether a process head names a registered pycmd, so the
// diagnoser can decide a Process's declared stream kinds without the
// argument evaluator: diagnosis runs before package expand evaluates any
// argument, so substitution values are not known yet.
type Resolver interface {
	// HeadPycmd reports the declared (in, out) kinds for proc, and whether
	// its head resolved to a registered pycmd at all.
	HeadPycmd(proc *syntax.Process) (in, out pycmd.StreamKind, ok bool)
}

// RegistryResolver resolves a Process's head against a [*pycmd.Registry] by
// its literal first token only — the common case of a bare command name.
// Heads that resolve only via a substitution's runtime value are handled by
// callers that implement their own [Resolver] wrapping argument evaluation.
type RegistryResolver struct {
	Registry *pycmd.Registry
}

func (r RegistryResolver) HeadPycmd(proc *syntax.Process) (pycmd.StreamKind, pycmd.StreamKind, bool) {
	if r.Registry == nil || len(proc.Args) == 0 {
		return pycmd.KindObject, pycmd.KindObject, false
	}
	parts := proc.Args[0].Parts
	if len(parts) != 1 {
		return pycmd.KindObject, pycmd.KindObject, false
	}
	var name string
	switch p := parts[0].(type) {
	case *syntax.Lit:
		name = p.Value
	case *syntax.SingleQuoted:
		name = p.Value
	default:
		return pycmd.KindObject, pycmd.KindObject, false
	}
	return r.Registry.Kinds(name)
}

// TypeError is raised when two stream kinds that cannot coexist meet at an
// edge: a MIX feeding a PY-only consumer, or a boolean combinator whose
// inType merges to MIX.
type TypeError struct {
	Pos  syntax.Pos
	Text string
}

func (e *TypeError) Error() string { return fmt.Sprintf("%d: %s", e.Pos, e.Text) }

func toSyntaxKind(k pycmd.StreamKind) syntax.StreamKind {
	switch k {
	case pycmd.KindStream:
		return syntax.KindStream
	case pycmd.KindNo:
		return syntax.KindNo
	default:
		return syntax.KindObject
	}
}

// fileLike reports whether k is exactly the byte-stream kind ST. §4.E's
// wrap-insertion rules all compare against ST specifically: even a NO
// producer gets wrapped in ProxyPyOutToNative when its consumer or the
// caller wants bytes, since NO guarantees no emissions rather than a byte
// stream.
func fileLike(k syntax.StreamKind) bool {
	return k == syntax.KindStream
}

// merge implements §4.E's three-branch combinator: merge(x,y) = x if x==y;
// NO (i.e. the other side) if either is NO; otherwise MIX.
func merge(x, y syntax.StreamKind) syntax.StreamKind {
	if x == y {
		return x
	}
	if x == syntax.KindNo {
		return y
	}
	if y == syntax.KindNo {
		return x
	}
	return syntax.KindMix
}

// Diagnose labels root and every descendant with its IOTypes, returning a
// possibly-different root node (when a ProxyPyOutToNative wrapper had to be
// inserted around it) or a *TypeError if the tree is incoherent.
func Diagnose(root syntax.Node, res Resolver) (syntax.Node, error) {
	labeled, err := label(root, res)
	if err != nil {
		return nil, err
	}
	if t := labeled.IOTypes(); !fileLike(t.Out) {
		labeled = wrapProxy(labeled)
	}
	return labeled, nil
}

func wrapProxy(n syntax.Node) *syntax.ProxyPyOutToNative {
	t := n.IOTypes()
	return &syntax.ProxyPyOutToNative{
		Inner: n,
		Types: syntax.IOTypes{In: t.In, Out: syntax.KindStream},
	}
}

func label(n syntax.Node, res Resolver) (syntax.Node, error) {
	switch x := n.(type) {
	case *syntax.Process:
		return labelProcess(x, res)
	case *syntax.Assign:
		inner, err := label(x.Cmd, res)
		if err != nil {
			return nil, err
		}
		x.Cmd = inner
		x.Types = inner.IOTypes()
		return x, nil
	case *syntax.BinaryOp:
		return labelBinary(x, res)
	case *syntax.ProxyPyOutToNative:
		inner, err := label(x.Inner, res)
		if err != nil {
			return nil, err
		}
		x.Inner = inner
		x.Types = syntax.IOTypes{In: inner.IOTypes().In, Out: syntax.KindStream}
		return x, nil
	default:
		return nil, fmt.Errorf("diagnose: unhandled node type %T", n)
	}
}

func labelProcess(p *syntax.Process, res Resolver) (syntax.Node, error) {
	in, out := syntax.KindStream, syntax.KindStream
	if res != nil {
		if pin, pout, ok := res.HeadPycmd(p); ok {
			in, out = toSyntaxKind(pin), toSyntaxKind(pout)
		}
	}
	p.Types = syntax.IOTypes{In: in, Out: out}

	for _, arg := range p.Args {
		if err := labelArgBackquotes(&arg, p, res); err != nil {
			return nil, err
		}
	}
	for i := range p.Redirects {
		if p.Redirects[i].Kind == syntax.RedirFile {
			if err := labelArgBackquotes(&p.Redirects[i].Target, p, res); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// labelArgBackquotes recursively diagnoses every backquoted sub-AST in arg,
// wrapping it in ProxyPyOutToNative if its output isn't file-like (the
// backquote reader always consumes bytes), and merging its inType into the
// owning process's inType under the MIX-rejection rule.
func labelArgBackquotes(arg *syntax.Argument, owner *syntax.Process, res Resolver) error {
	for i, part := range arg.Parts {
		bq, ok := part.(*syntax.Backquote)
		if !ok || bq.Body == nil {
			continue
		}
		sub, err := label(bq.Body, res)
		if err != nil {
			return err
		}
		if !fileLike(sub.IOTypes().Out) {
			sub = wrapProxy(sub)
		}
		bq.Body = sub
		arg.Parts[i] = bq

		merged := merge(owner.Types.In, sub.IOTypes().In)
		if merged == syntax.KindMix {
			return &TypeError{Pos: bq.Pos(), Text: "backquote input type is incompatible with the enclosing process"}
		}
		owner.Types.In = merged
	}
	return nil
}

func labelBinary(b *syntax.BinaryOp, res Resolver) (syntax.Node, error) {
	left, err := label(b.Left, res)
	if err != nil {
		return nil, err
	}
	right, err := label(b.Right, res)
	if err != nil {
		return nil, err
	}
	b.Left, b.Right = left, right

	if b.Op == syntax.OpPipe {
		lt, rt := left.IOTypes(), right.IOTypes()
		if lt.Out == syntax.KindMix && rt.In == syntax.KindObject {
			return nil, &TypeError{Pos: b.Pos(), Text: "MIX output cannot feed a pycmd's object input"}
		}
		if !fileLike(lt.Out) && rt.In == syntax.KindStream {
			b.Left = wrapProxy(left)
		}
		b.Types = syntax.IOTypes{In: lt.In, Out: rt.Out}
		return b, nil
	}

	lt, rt := left.IOTypes(), right.IOTypes()
	inType := merge(lt.In, rt.In)
	if inType == syntax.KindMix {
		return nil, &TypeError{Pos: b.Pos(), Text: fmt.Sprintf("%s combines incompatible input types", b.Op)}
	}
	outType := merge(lt.Out, rt.Out)
	// A sequential combinator's children share one downstream edge, so a
	// disagreement between their Out kinds (outType == MIX) needs exactly
	// the same bytes-normalization as the fileLike case: whichever side
	// isn't already ST gets wrapped, and the pair's combined Out becomes
	// ST rather than staying MIX.
	if fileLike(outType) || outType == syntax.KindMix {
		if !fileLike(lt.Out) {
			b.Left = wrapProxy(left)
		}
		if !fileLike(rt.Out) {
			b.Right = wrapProxy(right)
		}
		if outType == syntax.KindMix {
			outType = syntax.KindStream
		}
	}
	b.Types = syntax.IOTypes{In: inType, Out: outType}
	return b, nil
}
