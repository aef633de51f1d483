// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"errors"
	"sync"

	"rookery.dev/hsh/syntax"
)

// ErrPipeClosed is returned to a producer blocked in send when [PyPipe.Close]
// is called.
var ErrPipeClosed = errors.New("interp: object pipe closed")

// PyPipe is the object-stream FIFO of spec component J: a single-producer-
// many-generators pipe of host values with an explicit Close that
// terminates any reader currently iterating it. ReaderType records whether
// the pipe's consumer ultimately wants bytes (ST) or objects (PY), letting
// a producer query that before deciding how to behave; this engine's
// producers are always object-emitting, so the field is informational.
type PyPipe struct {
	ReaderType syntax.StreamKind

	mu           sync.Mutex
	cond         *sync.Cond
	queue        []func(send func(any) error) error
	drainStarted bool
	finished     bool // Finish was called: no further Produce/Run calls will arrive
	err          error

	ch       chan any
	stop     chan struct{}
	stopOnce sync.Once
}

// NewPyPipe returns a ready-to-use object pipe.
func NewPyPipe(readerType syntax.StreamKind) *PyPipe {
	p := &PyPipe{
		ReaderType: readerType,
		ch:         make(chan any),
		stop:       make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *PyPipe) send(v any) error {
	select {
	case p.ch <- v:
		return nil
	case <-p.stop:
		return ErrPipeClosed
	}
}

// Produce enqueues a generator function to run once every previously
// enqueued generator has returned; the reader drains generators strictly
// in the order they were enqueued, per §4.I. gen receives a send function
// that blocks until the reader is ready, or returns ErrPipeClosed if the
// pipe has been closed out from under it.
func (p *PyPipe) Produce(gen func(send func(any) error) error) {
	p.mu.Lock()
	p.queue = append(p.queue, gen)
	start := !p.drainStarted
	if start {
		p.drainStarted = true
	}
	p.mu.Unlock()
	p.cond.Signal()
	if start {
		go p.drain()
	}
}

// Finish tells the pipe that no further Produce/Run calls will ever arrive,
// so that once the queue drains the reader sees end-of-stream. Call it
// exactly once, from whichever task created the pipe, right after the
// entire producer-side subtree (which may itself be a sequence of several
// independent Produce/Run calls, e.g. across a ';'-joined chain) has
// finished executing.
func (p *PyPipe) Finish() {
	p.mu.Lock()
	p.finished = true
	start := !p.drainStarted
	p.drainStarted = true
	p.mu.Unlock()
	p.cond.Signal()
	if start {
		go p.drain()
	}
}

// Run enqueues gen like Produce, but blocks the caller until that specific
// generator has finished running (not until the whole pipe drains, since
// other producers may still be queued behind or ahead of it). Process
// executors use this so their exec call doesn't return before the work
// they fed into the pipe has actually happened.
func (p *PyPipe) Run(gen func(send func(any) error) error) error {
	done := make(chan error, 1)
	p.Produce(func(send func(any) error) error {
		err := gen(send)
		done <- err
		return err
	})
	return <-done
}

func (p *PyPipe) drain() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.finished {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			close(p.ch)
			return
		}
		gen := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if err := gen(p.send); err != nil && !errors.Is(err, ErrPipeClosed) {
			p.mu.Lock()
			if p.err == nil {
				p.err = err
			}
			p.mu.Unlock()
		}
	}
}

// Range calls fn once per value, in producer emission order, until fn
// returns false or the pipe has been drained and closed.
func (p *PyPipe) Range(fn func(any) bool) {
	for v := range p.ch {
		if !fn(v) {
			return
		}
	}
}

// Close terminates any reader currently iterating the pipe and unblocks any
// producer waiting in send, per the dispose contract in §5. It also marks
// the pipe finished, so the drain goroutine doesn't wait forever on a
// Finish call that will now never matter.
func (p *PyPipe) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.Finish()
}

// Err returns the first error a generator returned, if any.
func (p *PyPipe) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
