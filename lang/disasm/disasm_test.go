package disasm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/disasm"
)

func TestProtoListsEveryInstruction(t *testing.T) {
	fn, err := compiler.Compile("print 1 + 2;")
	require.NoError(t, err)

	var buf bytes.Buffer
	disasm.Proto(&buf, fn, "script")

	out := buf.String()
	require.Contains(t, out, "== script ==")
	require.Contains(t, out, "const")
	require.Contains(t, out, "add")
	require.Contains(t, out, "print")
	require.Contains(t, out, "return")
}

func TestProtoRecursesIntoNestedFunctions(t *testing.T) {
	fn, err := compiler.Compile("fun f() { return 1; } print f();")
	require.NoError(t, err)

	var buf bytes.Buffer
	disasm.Proto(&buf, fn, "script")

	out := buf.String()
	require.Contains(t, out, "closure")
	require.Contains(t, out, "== f ==")
}
