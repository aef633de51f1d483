// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"

	"rookery.dev/hsh/diagnose"
	"rookery.dev/hsh/expand"
	"rookery.dev/hsh/pycmd"
	"rookery.dev/hsh/syntax"
)

// stream is one edge of the running task tree: either a byte stream (R for
// the read direction, W for the write direction) or an object stream
// (Obj, shared between both directions — readers call [PyPipe.Range],
// writers call [PyPipe.Run]).
type stream struct {
	Kind syntax.StreamKind
	R    io.Reader
	W    io.Writer
	Obj  *PyPipe
}

// exec is the top of the task tree (component K), dispatching on node kind.
// It is the idiomatic-Go replacement for a hand-rolled continuation
// scheduler: Go's goroutines and channels already give suspension, fan-out
// and cancellation, so each task is an ordinary (possibly concurrent) Go
// call instead of a Task/Controller pair. See DESIGN.md for the rationale.
func (r *Runner) exec(ctx context.Context, n syntax.Node, in, out stream, caps *captures) (int, error) {
	select {
	case <-ctx.Done():
		return 1, ctx.Err()
	default:
	}
	switch x := n.(type) {
	case *syntax.Process:
		return r.execProcess(ctx, x, in, out, caps)
	case *syntax.BinaryOp:
		return r.execBinary(ctx, x, in, out, caps)
	case *syntax.Assign:
		exit, err := r.exec(ctx, x.Cmd, in, out, caps)
		caps.set(x.Name, exit)
		return exit, err
	case *syntax.ProxyPyOutToNative:
		return r.execProxy(ctx, x, in, out, caps)
	default:
		return 1, fmt.Errorf("interp: unhandled node type %T", n)
	}
}

func (r *Runner) execBinary(ctx context.Context, b *syntax.BinaryOp, in, out stream, caps *captures) (int, error) {
	if b.Op == syntax.OpPipe {
		return r.execPipe(ctx, b, in, out, caps)
	}

	leftExit, leftErr := r.exec(ctx, b.Left, in, out, caps)
	if leftErr != nil {
		return leftExit, leftErr
	}
	runRight := true
	switch b.Op {
	case syntax.OpAnd:
		runRight = leftExit == 0
	case syntax.OpOr:
		runRight = leftExit != 0
	case syntax.OpSeq:
		runRight = true
	}
	if !runRight {
		return leftExit, nil
	}
	return r.exec(ctx, b.Right, in, out, caps)
}

// execPipe implements §4.K's PipePyToPyTask/PipeNativeToNativeTask: it
// creates one connecting edge — an OS pipe for a byte-stream edge, a
// [PyPipe] for an object-stream edge — and runs both sides concurrently.
// Per the ordering guarantee in §5, the left side's producer close
// happens-before the right side observes end-of-stream; an OS pipe and a
// PyPipe both give that for free.
func (r *Runner) execPipe(ctx context.Context, b *syntax.BinaryOp, in, out stream, caps *captures) (int, error) {
	leftOutKind := b.Left.IOTypes().Out

	var mid stream
	var pr, pw *os.File
	if leftOutKind == syntax.KindObject {
		mid = stream{Kind: syntax.KindObject, Obj: NewPyPipe(syntax.KindObject)}
	} else {
		var err error
		pr, pw, err = os.Pipe()
		if err != nil {
			return 1, &IOError{Text: "creating pipe", Err: err}
		}
		r.res.track(pr)
		r.res.track(pw)
		mid = stream{Kind: syntax.KindStream, R: pr, W: pw}
	}

	var g errgroup.Group
	var leftExit, rightExit int
	var leftErr, rightErr error

	g.Go(func() error {
		leftExit, leftErr = r.exec(ctx, b.Left, in, mid, caps)
		if mid.Kind == syntax.KindStream {
			pw.Close()
		} else {
			mid.Obj.Finish()
		}
		return nil
	})
	g.Go(func() error {
		rightExit, rightErr = r.exec(ctx, b.Right, mid, out, caps)
		return nil
	})
	g.Wait()
	if mid.Kind == syntax.KindStream {
		pr.Close()
	}

	if leftErr != nil {
		return leftExit, leftErr
	}
	if rightErr != nil {
		return rightExit, rightErr
	}
	return rightExit, nil
}

// execProxy implements §4.K's ProxyPyOutToNativeTask.
func (r *Runner) execProxy(ctx context.Context, p *syntax.ProxyPyOutToNative, in, out stream, caps *captures) (int, error) {
	obj := NewPyPipe(syntax.KindObject)
	var g errgroup.Group
	g.Go(func() error {
		return writeObjectsToWriter(obj, out.W)
	})

	exit, err := r.exec(ctx, p.Inner, in, stream{Kind: syntax.KindObject, Obj: obj}, caps)
	obj.Finish()
	if bridgeErr := g.Wait(); err == nil && bridgeErr != nil {
		err = bridgeErr
	}
	return exit, err
}

// execProcess implements component G (argument evaluation) plus the
// dispatch half of component H.
func (r *Runner) execProcess(ctx context.Context, p *syntax.Process, in, out stream, caps *captures) (int, error) {
	cfg := expand.Config{Scope: r.Scope, Backquotes: r, Dir: r.currentDir(), HomeDir: r.HomeDir}
	argVals := make([]expand.Value, len(p.Args))
	for i, a := range p.Args {
		v, err := expand.EvalArgument(a, cfg)
		if err != nil {
			return 1, err
		}
		argVals[i] = v
	}

	if cmd, ok := r.resolveHead(p, argVals); ok {
		return r.execPycmd(ctx, p, cmd, argVals, in, out, caps)
	}
	return r.execExternal(ctx, p, argVals, in, out, caps)
}

// resolveHead implements §4.E/§4.G's head-resolution rule: a literal or
// single-quoted head names a registered pycmd directly; a head that is a
// lone substitution resolving to a [pycmd.Cmd] value, or to a string
// naming a registered one, also counts.
//
// Known limitation (documented in DESIGN.md): since this re-derivation runs
// after argument evaluation but diagnosis (package diagnose) must commit to
// a stream-kind label before any argument is evaluated, a pycmd invoked
// purely through a substitution is diagnosed as a plain ST/ST external
// process. Only the literal/single-quoted head form is guaranteed to
// diagnose correctly; this function still honours the substitution form at
// execution time for whichever tree shapes the diagnoser happened to leave
// untouched (e.g. it isn't on either side of a '|').
func (r *Runner) resolveHead(p *syntax.Process, argVals []expand.Value) (pycmd.Cmd, bool) {
	if r.Registry == nil || len(p.Args) == 0 {
		return pycmd.Cmd{}, false
	}
	parts := p.Args[0].Parts
	if len(parts) != 1 {
		return pycmd.Cmd{}, false
	}
	switch x := parts[0].(type) {
	case *syntax.Lit:
		return r.Registry.Lookup(x.Value)
	case *syntax.SingleQuoted:
		return r.Registry.Lookup(x.Value)
	case *syntax.Substitution:
		switch v := argVals[0].Scalar.(type) {
		case pycmd.Cmd:
			return v, true
		case string:
			return r.Registry.Lookup(v)
		}
	}
	return pycmd.Cmd{}, false
}

// execExternal implements the external branch of component H: fork (via
// [os.StartProcess], so the process-wide reaper in reaper_unix.go owns
// every wait() rather than the Go runtime's own os/exec bookkeeping),
// redirections, and argv construction.
func (r *Runner) execExternal(ctx context.Context, p *syntax.Process, argVals []expand.Value, in, out stream, caps *captures) (int, error) {
	argv := expand.Args(argVals)
	if len(argv) == 0 {
		return 1, &ExecError{Text: "empty process head"}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		fmt.Fprintf(r.Stderr, "%s: %v\n", argv[0], err)
		return 127, nil
	}

	files := map[int]*os.File{}
	var cleanups []func()
	defer func() {
		for _, c := range cleanups {
			c()
		}
	}()

	f0, cleanup0, err := fileForReader(in, r.res)
	if err != nil {
		return 1, err
	}
	cleanups = append(cleanups, cleanup0)
	files[0] = f0

	f1, cleanup1, err := fileForWriter(out, r.res)
	if err != nil {
		return 1, err
	}
	cleanups = append(cleanups, cleanup1)
	files[1] = f1

	f2, cleanup2, err := fileForWriter(stream{Kind: syntax.KindStream, W: r.Stderr}, r.res)
	if err != nil {
		return 1, err
	}
	cleanups = append(cleanups, cleanup2)
	files[2] = f2

	var pendingCapture *pendingPyout
	for _, red := range p.Redirects {
		pc, err := r.applyRedirect(red, files, argVals)
		if err != nil {
			return 1, err
		}
		if pc != nil {
			pendingCapture = pc
		}
	}

	maxFD := 2
	for fd := range files {
		if fd > maxFD {
			maxFD = fd
		}
	}
	fileSlice := make([]*os.File, maxFD+1)
	for fd, f := range files {
		fileSlice[fd] = f
	}

	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Dir:   r.currentDir(),
		Env:   r.environ(),
		Files: fileSlice,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "%s: %v\n", argv[0], err)
		return 126, nil
	}

	if pendingCapture != nil {
		pendingCapture.writeEnd.Close()
	}

	exitCh := make(chan int, 1)
	reapChild(getReaper(), proc, func(code int, _ error) {
		exitCh <- code
	})
	var exit int
	select {
	case exit = <-exitCh:
	case <-ctx.Done():
		proc.Kill()
		exit = <-exitCh
	}

	if pendingCapture != nil {
		pendingCapture.wg.Wait()
		caps.set(pendingCapture.name, pendingCapture.lines)
	}
	return exit, nil
}

type pendingPyout struct {
	name     string
	writeEnd *os.File
	lines    []any
	wg       sync.WaitGroup
}

// applyRedirect mutates files to reflect one redirection, per the ordering
// in §4.H: numbered dup2, file open+dup2, or pyout-capture pipe+dup2.
func (r *Runner) applyRedirect(red syntax.Redirect, files map[int]*os.File, _ []expand.Value) (*pendingPyout, error) {
	switch red.Kind {
	case syntax.RedirDup:
		src, ok := files[red.DstFD]
		if !ok {
			return nil, &IOError{Text: fmt.Sprintf("dup from fd %d: not open", red.DstFD)}
		}
		files[red.SrcFD] = src
		return nil, nil
	case syntax.RedirFile:
		cfg := expand.Config{Scope: r.Scope, Backquotes: r, Dir: r.currentDir(), HomeDir: r.HomeDir}
		v, err := expand.EvalArgument(red.Target, cfg)
		if err != nil {
			return nil, err
		}
		name := expand.Stringify(v.Scalar)
		if v.IsList && len(v.List) > 0 {
			name = v.List[0]
		}
		flags := os.O_WRONLY | os.O_CREATE
		if red.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(name, flags, 0o644)
		if err != nil {
			return nil, &IOError{Text: fmt.Sprintf("opening %q", name), Err: err}
		}
		r.res.track(f)
		files[red.SrcFD] = f
		return nil, nil
	case syntax.RedirCapture:
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, &IOError{Text: "creating capture pipe", Err: err}
		}
		files[1] = pw
		pc := &pendingPyout{name: red.VarName, writeEnd: pw}
		pc.wg.Add(1)
		go func() {
			defer pc.wg.Done()
			defer pr.Close()
			readLinesIntoCapture(pr, &pc.lines)
		}()
		return pc, nil
	}
	return nil, fmt.Errorf("interp: unhandled redirect kind %v", red.Kind)
}

// fileForReader returns an *os.File usable as a child's stdin, creating an
// OS pipe plus a copying goroutine when in.R isn't already one (e.g. the
// embedding caller's own [io.Reader]).
func fileForReader(in stream, res *resourceTable) (*os.File, func(), error) {
	if f, ok := in.R.(*os.File); ok {
		return f, func() {}, nil
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, nil, &IOError{Text: "creating stdin pipe", Err: err}
	}
	res.track(pr)
	go func() {
		if in.R != nil {
			io.Copy(pw, in.R)
		}
		pw.Close()
	}()
	return pr, func() {}, nil
}

// execPycmd implements component I: the in-process worker branch of the
// process executor. When out is an object stream and no redirect applies,
// the Cmd runs inside out.Obj.Run (on the pipe's drain goroutine, even when
// OutKind is No); otherwise it runs on the calling goroutine and its
// emissions go to the redirect target or are written as lines to out.W.
func (r *Runner) execPycmd(ctx context.Context, p *syntax.Process, cmd pycmd.Cmd, argVals []expand.Value, in, out stream, caps *captures) (int, error) {
	args := make([]any, 0, len(argVals)-1)
	for _, v := range argVals[1:] {
		if v.IsList {
			args = append(args, v.List)
		} else {
			args = append(args, v.Scalar)
		}
	}

	var input any
	switch {
	case in.Kind == syntax.KindObject && in.Obj != nil:
		input = pipeToChan(in.Obj)
	case in.Kind == syntax.KindStream && in.R != nil:
		input = in.R
	}

	opts := pycmd.Options{Chdir: r.chdir}
	if r.Scope != nil {
		if s, ok := r.Scope.(interface{ Globals() map[string]any }); ok {
			opts.Globals = s.Globals
		}
		if s, ok := r.Scope.(interface{ Locals() map[string]any }); ok {
			opts.Locals = s.Locals
		}
	}

	if len(p.Redirects) > 1 {
		return 1, &diagnose.TypeError{Pos: p.Pos(), Text: "a pycmd accepts at most one redirect"}
	}

	var pendingCapture *pendingPyout
	var redirectOut io.Writer
	for _, red := range p.Redirects {
		switch red.Kind {
		case syntax.RedirFile:
			cfg := expand.Config{Scope: r.Scope, Backquotes: r, Dir: r.currentDir(), HomeDir: r.HomeDir}
			v, err := expand.EvalArgument(red.Target, cfg)
			if err != nil {
				return 1, err
			}
			name := expand.Stringify(v.Scalar)
			flags := os.O_WRONLY | os.O_CREATE
			if red.Append {
				flags |= os.O_APPEND
			} else {
				flags |= os.O_TRUNC
			}
			f, err := os.OpenFile(name, flags, 0o644)
			if err != nil {
				return 1, &IOError{Text: fmt.Sprintf("opening %q", name), Err: err}
			}
			r.res.track(f)
			redirectOut = f
		case syntax.RedirCapture:
			pendingCapture = &pendingPyout{name: red.VarName}
		default:
			return 1, &diagnose.TypeError{Pos: red.Pos(), Text: "redirect forms pycmds cannot accept"}
		}
	}

	var runErr error
	switch {
	case redirectOut != nil, pendingCapture != nil:
		runErr = cmd.Run(ctx, args, input, opts, pycmd.Result{Emit: func(v any) error {
			if redirectOut != nil {
				_, err := io.WriteString(redirectOut, expand.Stringify(v)+"\n")
				return err
			}
			pendingCapture.lines = append(pendingCapture.lines, v)
			return nil
		}})
	case out.Kind == syntax.KindObject && out.Obj != nil:
		runErr = out.Obj.Run(func(send func(any) error) error {
			return cmd.Run(ctx, args, input, opts, pycmd.Result{Emit: send})
		})
	case out.Kind == syntax.KindStream && out.W != nil:
		runErr = cmd.Run(ctx, args, input, opts, pycmd.Result{Emit: func(v any) error {
			_, err := io.WriteString(out.W, expand.Stringify(v)+"\n")
			return err
		}})
	default:
		runErr = cmd.Run(ctx, args, input, opts, pycmd.Result{Emit: func(v any) error { return nil }})
	}

	if pendingCapture != nil {
		caps.set(pendingCapture.name, pendingCapture.lines)
	}
	if runErr != nil {
		return 1, runErr
	}
	return 0, nil
}

// pipeToChan adapts a [PyPipe] reader into a <-chan any, the contract
// [pycmd.Cmd.Run] expects for a Python-kind input.
func pipeToChan(p *PyPipe) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		p.Range(func(v any) bool {
			out <- v
			return true
		})
	}()
	return out
}

// fileForWriter is fileForReader's write-side counterpart for stdout/stderr.
func fileForWriter(out stream, res *resourceTable) (*os.File, func(), error) {
	if f, ok := out.W.(*os.File); ok {
		return f, func() {}, nil
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, nil, &IOError{Text: "creating stdout pipe", Err: err}
	}
	res.track(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if out.W != nil {
			io.Copy(out.W, pr)
		}
		pr.Close()
	}()
	return pw, func() { pw.Close(); <-done }, nil
}
