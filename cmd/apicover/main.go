package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sophialabs/apicover/internal/app"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and maps the outcome to a process exit code:
// 0 success, 1 failure, 2 coverage below fail_under.
func run(args []string) int {
	root := newRootCmd(os.Stdout)
	root.SetArgs(args)
	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrCoverageBelowThreshold):
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
}
