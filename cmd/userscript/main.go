// Command userscript installs userscripts and injects them into browser pages.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/userscript/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
