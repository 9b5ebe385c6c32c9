package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/disasm"
)

// Disasm compiles each file in args and prints its disassembled bytecode,
// recursing into nested functions.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
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
		disasm.Proto(stdio.Stdout, proto, "script")
	}
	return nil
}
