package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/wisp/lang/scanner"
	"github.com/mna/wisp/lang/token"
)

// Tokenize runs the scanner phase only, printing one line per token, for
// every file in args.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			return err
		}
		tokenizeSource(stdio, string(src))
	}
	return nil
}

func tokenizeSource(stdio mainer.Stdio, src string) {
	var sc scanner.Scanner
	sc.Init(src)
	for {
		tok := sc.Scan()
		fmt.Fprintf(stdio.Stdout, "%4d %-14s %q\n", tok.Line, tok.Kind, tok.Lexeme)
		if tok.Kind == token.EOF {
			return
		}
	}
}
