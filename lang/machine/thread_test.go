package machine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/machine"
)

func run(t *testing.T, src string) string {
	t.Helper()
	proto, err := compiler.Compile(src)
	require.NoError(t, err)

	var out bytes.Buffer
	th := machine.NewThread(&out)
	defer th.Close()
	err = th.Interpret(proto)
	require.NoError(t, err)
	return out.String()
}

func TestArithmeticPrecedence(t *testing.T) {
	require.Equal(t, "7\n", run(t, "print 1 + 2 * 3;"))
}

func TestStringConcat(t *testing.T) {
	require.Equal(t, "hi there\n", run(t, `var a = "hi"; var b = " there"; print a + b;`))
}

func TestWhileLoop(t *testing.T) {
	require.Equal(t, "0\n1\n2\n", run(t, "var i = 0; while (i < 3) { print i; i = i + 1; }"))
}

func TestRecursiveFibonacci(t *testing.T) {
	src := `fun fib(n){ if (n<2) return n; return fib(n-1)+fib(n-2); } print fib(10);`
	require.Equal(t, "55\n", run(t, src))
}

func TestClosureCounter(t *testing.T) {
	src := `fun makeCounter(){ var x=0; fun c(){ x=x+1; return x; } return c; } var c=makeCounter(); print c(); print c();`
	require.Equal(t, "1\n2\n", run(t, src))
}

func TestNilFalseTruthiness(t *testing.T) {
	require.Equal(t, "false\n", run(t, "print nil == false;"))
	require.Equal(t, "true\n", run(t, "print !nil;"))
}

func TestForLoopDesugaring(t *testing.T) {
	src := `for (var i = 0; i < 3; i = i + 1) { print i; }`
	require.Equal(t, "0\n1\n2\n", run(t, src))
}

func TestLogicalShortCircuit(t *testing.T) {
	require.Equal(t, "false\n", run(t, "print true and false;"))
	require.Equal(t, "true\n", run(t, "print true or false;"))
	require.Equal(t, "false\n", run(t, "print false and 1;"))
	require.Equal(t, "1\n", run(t, "print nil or 1;"))
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	proto, err := compiler.Compile("print x;")
	require.NoError(t, err)

	var out bytes.Buffer
	th := machine.NewThread(&out)
	defer th.Close()
	err = th.Interpret(proto)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.NotEmpty(t, rerr.Trace)
}

func TestSetUndefinedGlobalLeavesTableUntouched(t *testing.T) {
	proto, err := compiler.Compile("x = 1; print x;")
	require.NoError(t, err)

	var out bytes.Buffer
	th := machine.NewThread(&out)
	defer th.Close()
	err = th.Interpret(proto)
	require.Error(t, err)

	// x must still be undefined on the same thread after the failed set
	proto, err = compiler.Compile("print x;")
	require.NoError(t, err)
	require.Error(t, th.Interpret(proto))
	require.Empty(t, out.String())
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	proto, err := compiler.Compile(`var x = 1; x();`)
	require.NoError(t, err)

	var out bytes.Buffer
	th := machine.NewThread(&out)
	defer th.Close()
	err = th.Interpret(proto)
	require.Error(t, err)
}

func TestWrongArityIsRuntimeError(t *testing.T) {
	proto, err := compiler.Compile(`fun f(a, b) { return a + b; } f(1);`)
	require.NoError(t, err)

	var out bytes.Buffer
	th := machine.NewThread(&out)
	defer th.Close()
	err = th.Interpret(proto)
	require.Error(t, err)
}

func TestClockNativeReturnsNumber(t *testing.T) {
	require.NotPanics(t, func() {
		run(t, "print clock() >= 0;")
	})
}

func TestValueStackBalancedAfterTopLevelStatements(t *testing.T) {
	proto, err := compiler.Compile(`var a = 1; { var b = 2; print a + b; } print a;`)
	require.NoError(t, err)

	var out bytes.Buffer
	th := machine.NewThread(&out)
	defer th.Close()
	require.NoError(t, th.Interpret(proto))
	require.Equal(t, "3\n1\n", out.String())
}
