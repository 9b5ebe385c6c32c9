package maincmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/mna/wisp/internal/maincmd"
)

func newStdio(stdin string) (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return mainer.Stdio{
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout, &stderr
}

func TestRunFileSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.wisp")
	require.NoError(t, os.WriteFile(path, []byte("print 1 + 1;\n"), 0o600))

	stdio, stdout, stderr := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", path}, stdio)

	require.Equal(t, mainer.Success, code)
	require.Equal(t, "2\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunFileCompileErrorExits65(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.wisp")
	require.NoError(t, os.WriteFile(path, []byte("var ;\n"), 0o600))

	stdio, _, stderr := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", path}, stdio)

	require.EqualValues(t, 65, code)
	require.NotEmpty(t, stderr.String())
}

func TestRunFileRuntimeErrorExits70(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.wisp")
	require.NoError(t, os.WriteFile(path, []byte("print x;\n"), 0o600))

	stdio, _, stderr := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", path}, stdio)

	require.EqualValues(t, 70, code)
	require.NotEmpty(t, stderr.String())
}

func TestRunMissingFileExits74(t *testing.T) {
	stdio, _, stderr := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", "/no/such/file.wisp"}, stdio)

	require.EqualValues(t, 74, code)
	require.NotEmpty(t, stderr.String())
}

func TestTokenizeRequiresFile(t *testing.T) {
	stdio, _, _ := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", "tokenize"}, stdio)
	require.Equal(t, mainer.InvalidArgs, code)
}

func TestHelpPrintsUsage(t *testing.T) {
	stdio, stdout, _ := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"wisp", "-h"}, stdio)

	require.Equal(t, mainer.Success, code)
	require.Contains(t, stdout.String(), "usage:")
}
