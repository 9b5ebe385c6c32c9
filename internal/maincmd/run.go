package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/machine"
)

// Run compiles and executes a single source file, or starts an interactive
// REPL if no path is given, per spec.md §6 ("CLI").
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		return c.repl(ctx, stdio)
	}
	return c.runFile(ctx, stdio, args[0])
}

func (c *Cmd) runFile(ctx context.Context, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}

	proto, err := compiler.Compile(string(src))
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}

	th := machine.NewThread(stdio.Stdout)
	defer th.Close()

	if err := th.Interpret(proto); err != nil {
		printRuntimeError(stdio, err)
		return err
	}
	return nil
}

// repl reads one line at a time from stdin, compiling and running each as
// its own program. A compile or runtime error on one line never exits the
// REPL (spec.md §6: "the REPL never exits from errors").
func (c *Cmd) repl(ctx context.Context, stdio mainer.Stdio) error {
	sc := bufio.NewScanner(stdio.Stdin)
	th := machine.NewThread(stdio.Stdout)
	defer th.Close()

	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		proto, err := compiler.Compile(sc.Text())
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
			continue
		}
		if err := th.Interpret(proto); err != nil {
			printRuntimeError(stdio, err)
		}
	}
}

func printRuntimeError(stdio mainer.Stdio, err error) {
	rerr, ok := err.(*machine.RuntimeError)
	if !ok {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return
	}
	fmt.Fprintln(stdio.Stderr, rerr.Message)
	for _, line := range rerr.Trace {
		fmt.Fprintln(stdio.Stderr, line)
	}
}
