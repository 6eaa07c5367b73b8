package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain re-execs this test binary as the rush binary whenever a
// testscript script invokes `rush`, so the CLI's `-c` flag is tested
// against the real compiled entry point (grounded on shfmt/main_test.go's
// testscript.RunMain wiring).
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"rush": run,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "scripts"),
	})
}
