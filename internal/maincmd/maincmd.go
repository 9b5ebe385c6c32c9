package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/machine"
)

const binName = "wisp"

// Exit codes per spec.md §6: 0 success is mainer.Success itself.
const (
	exitCompileError mainer.ExitCode = 65
	exitRuntimeError mainer.ExitCode = 70
	exitIOError      mainer.ExitCode = 74
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version
       %[1]s [<path>]

With no command and no path, starts an interactive REPL. With a path and no
command, compiles and runs that file.

The <command> can be one of:
       run                       Compile and run a source file, or start
                                 the REPL if no path is given.
       tokenize                  Execute the scanner phase of the
                                 compilation and print the resulting
                                 tokens.
       disasm                    Compile a source file and print its
                                 disassembled bytecode.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

More information on the %[1]s repository:
       https://github.com/mna/wisp
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	// No command given: treat the (possibly empty) argument list as the
	// "run" command's arguments, so `wisp` alone starts the REPL and
	// `wisp script.wisp` runs a file, per spec.md §6.
	commands := buildCmds(c)

	cmdName := "run"
	cmdArgs := c.args
	if len(c.args) > 0 {
		if _, isCmd := commands[c.args[0]]; isCmd {
			cmdName = c.args[0]
			cmdArgs = c.args[1:]
		}
	}

	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}
	c.args = cmdArgs

	if (cmdName == "tokenize" || cmdName == "disasm") && len(cmdArgs) == 0 {
		return fmt.Errorf("%s: at least one file must be provided", cmdName)
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args); err != nil {
		return exitCodeFor(err)
	}
	return mainer.Success
}

// exitCodeFor maps a command error to one of the process exit codes spec.md
// §6 and §7 call for: a *compiler.CompileError means source never compiled,
// a *machine.RuntimeError means it compiled but failed during execution,
// and anything else (file-not-found, etc.) is an I/O/resource error.
func exitCodeFor(err error) mainer.ExitCode {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return exitCompileError
	}
	var runtimeErr *machine.RuntimeError
	if errors.As(err, &runtimeErr) {
		return exitRuntimeError
	}
	return exitIOError
}

// valid commands are those that take a mainer.Stdio and a slice of strings
// as input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
