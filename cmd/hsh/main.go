// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// hsh is a demo front end for package shell: a non-interactive-beyond-basic
// runner that reads one hybrid-shell program from -c, a file argument, or
// stdin, and prints its captures.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"rookery.dev/hsh/shell"
)

// globalsScope resolves bare $name substitutions against the process
// environment; this demo front end embeds no host expression language, so
// ${...} substitutions always fail.
type globalsScope struct{}

func (globalsScope) Lookup(name string) (any, bool) {
	return os.LookupEnv(name)
}

func (globalsScope) Eval(expr string) (any, error) {
	return nil, fmt.Errorf("hsh: no host expression evaluator configured for %q", expr)
}

var command = flag.String("c", "", "program text to run")

func main() {
	os.Exit(main1())
}

// main1 is split out from main so that [testscript.RunMain] can register it
// as a subcommand and drive cmd/hsh from testdata/scripts.
func main1() int {
	flag.Parse()
	if err := runAll(); err != nil {
		fmt.Fprintln(os.Stderr, "hsh:", err)
		return 1
	}
	return 0
}

func runAll() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh := shell.New(shell.WithScope(globalsScope{}))

	switch {
	case *command != "":
		return runOne(ctx, sh, *command)
	case flag.NArg() > 0:
		for _, path := range flag.Args() {
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err := runOne(ctx, sh, string(b)); err != nil {
				return err
			}
		}
		return nil
	case term.IsTerminal(int(os.Stdin.Fd())):
		return runInteractive(ctx, sh)
	default:
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		return runOne(ctx, sh, string(b))
	}
}

func runOne(ctx context.Context, sh *shell.Shell, src string) error {
	caps, err := sh.Run(ctx, src)
	if err != nil {
		return err
	}
	for name, v := range caps {
		fmt.Printf("%s = %v\n", name, v)
	}
	return nil
}

func runInteractive(ctx context.Context, sh *shell.Shell) error {
	sc := bufio.NewScanner(os.Stdin)
	fmt.Print("$ ")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			if err := runOne(ctx, sh, line); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		fmt.Print("$ ")
	}
	return sc.Err()
}
