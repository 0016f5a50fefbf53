// Command npawatch is the entrypoint: it delegates to internal/cmd for
// all startup, run, and shutdown logic and translates the result into
// a process exit code.
package main

import (
	"fmt"
	"os"

	"github.com/npawatch/npawatch/internal/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cmd.ExitCode(err))
}
