// Package filetest drives golden-file tests over wisp source programs: each
// *.wisp file under a testdata directory is compiled and run, and its
// captured stdout/stderr is diffed against a corresponding golden file.
package filetest

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/diff"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/machine"
)

var testUpdateAllTests = flag.Bool("test.update-all-tests", false, "If set, sets all test.update-*-tests.")

// SourceFiles returns the list of source files in dir with the given
// extension (".wisp" if ext is empty).
func SourceFiles(t *testing.T, dir, ext string) []os.FileInfo {
	t.Helper()

	if ext == "" {
		ext = ".wisp"
	} else if ext[0] != '.' {
		ext = "." + ext
	}

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	res := make([]os.FileInfo, 0, len(dents))
	for _, dent := range dents {
		if !dent.Type().IsRegular() {
			continue
		}
		if filepath.Ext(dent.Name()) != ext {
			continue
		}
		fi, err := dent.Info()
		if err != nil {
			t.Fatal(err)
		}
		res = append(res, fi)
	}
	return res
}

// RunProgram compiles and runs the program in src, returning what it wrote
// to stdout and, on compile or runtime failure, the formatted diagnostic
// text that would have gone to stderr.
func RunProgram(src string) (stdout, stderr string) {
	proto, err := compiler.Compile(src)
	if err != nil {
		return "", err.Error() + "\n"
	}

	var out bytes.Buffer
	th := machine.NewThread(&out)
	defer th.Close()

	if err := th.Interpret(proto); err != nil {
		if rerr, ok := err.(*machine.RuntimeError); ok {
			errText := rerr.Message + "\n"
			for _, line := range rerr.Trace {
				errText += line + "\n"
			}
			return out.String(), errText
		}
		return out.String(), err.Error() + "\n"
	}
	return out.String(), ""
}

// DiffOutput validates that output matches the golden file fi.Name()+".want"
// in resultDir, updating the golden file instead when updateFlag (or
// -test.update-all-tests) is set.
func DiffOutput(t *testing.T, fi os.FileInfo, output, resultDir string, updateFlag *bool) {
	t.Helper()
	DiffCustom(t, fi, "output", ".want", output, resultDir, updateFlag)
}

// DiffErrors is DiffOutput's counterpart for the ".err" golden file.
func DiffErrors(t *testing.T, fi os.FileInfo, output, resultDir string, updateFlag *bool) {
	t.Helper()
	DiffCustom(t, fi, "errors", ".err", output, resultDir, updateFlag)
}

// DiffCustom is the general form behind DiffOutput/DiffErrors: label names
// the kind of output being checked (used only in failure messages) and ext
// is the golden file's extension, including the leading dot.
func DiffCustom(t *testing.T, fi os.FileInfo, label, ext, output, resultDir string, updateFlag *bool) {
	t.Helper()
	wantFile := filepath.Join(resultDir, fi.Name()+ext)
	diffOrUpdate(t, label, wantFile, output, updateFlag)
}

func diffOrUpdate(t *testing.T, label, goldFile, output string, updateFlag *bool) {
	t.Helper()

	if (updateFlag != nil && *updateFlag) || *testUpdateAllTests {
		if err := os.WriteFile(goldFile, []byte(output), 0o600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(goldFile)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	want := string(wantb)
	if testing.Verbose() {
		t.Logf("got %s:\n%s\n", label, output)
	}
	if patch := diff.Diff(want, output); patch != "" {
		if testing.Verbose() {
			t.Logf("want %s:\n%s\n", label, want)
		}
		t.Errorf("diff %s:\n%s\n", label, patch)
	}
}
