// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"io"
	"strings"

	"rookery.dev/hsh/syntax"
)

// RunBackquote implements [expand.BackquoteRunner] for §4.G.1: body (an
// already-diagnosed sub-AST) runs with empty stdin and its own private
// capture map, and its byte stdout is collected as complete lines.
//
// Known limitation (see DESIGN.md): a backquote isn't subject to the
// context passed to the enclosing [Runner.Run] call, since
// [expand.BackquoteRunner] predates any context-aware hook into argument
// evaluation. It still observes the process-wide reaper and resource
// table like any other task.
func (r *Runner) RunBackquote(body syntax.Node) ([]string, error) {
	pr, pw := io.Pipe()
	var lines []any
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		readLinesIntoCapture(pr, &lines)
	}()

	in := stream{Kind: syntax.KindStream, R: strings.NewReader("")}
	out := stream{Kind: syntax.KindStream, W: pw}
	caps := newCaptures()
	_, err := r.exec(context.Background(), body, in, out, caps)
	pw.Close()
	<-readDone
	if err != nil {
		return nil, err
	}

	words := make([]string, len(lines))
	for i, v := range lines {
		if s, ok := v.(string); ok {
			words[i] = s
		}
	}
	return words, nil
}
