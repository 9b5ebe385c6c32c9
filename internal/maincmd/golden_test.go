package maincmd_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/wisp/internal/filetest"
)

var updatePrograms = flag.Bool("test.update-programs-tests", false, "update golden files for TestPrograms")

// TestPrograms compiles and runs every *.wisp file under testdata/programs
// and diffs its stdout against the matching .want golden file, end-to-end
// scenarios straight out of spec.md §8.
func TestPrograms(t *testing.T) {
	dir := filepath.Join("testdata", "programs")
	for _, fi := range filetest.SourceFiles(t, dir, ".wisp") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}
			stdout, stderr := filetest.RunProgram(string(src))
			if stderr != "" {
				t.Fatalf("unexpected error output: %s", stderr)
			}
			filetest.DiffOutput(t, fi, stdout, dir, updatePrograms)
		})
	}
}
