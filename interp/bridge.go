// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"rookery.dev/hsh/expand"
)

// writeObjectsToWriter implements §4.I's WriteThread: it reads an object
// sequence from pipe and writes "str(x)+\n" to w for each, until pipe is
// drained and closed.
func writeObjectsToWriter(pipe *PyPipe, w io.Writer) error {
	var werr error
	pipe.Range(func(v any) bool {
		if _, err := io.WriteString(w, expand.Stringify(v)+"\n"); err != nil {
			werr = err
			return false
		}
		return true
	})
	if werr != nil {
		return werr
	}
	return pipe.Err()
}

// readLinesIntoCapture implements §4.I's WriteToPyOutThread: it reads
// complete lines from r, stripping one trailing "\r?\n" each, and appends
// them as strings to capture.
func readLinesIntoCapture(r io.Reader, capture *[]any) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		*capture = append(*capture, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("interp: reading captured output: %w", err)
	}
	return nil
}
