// Command badgesync fetches an Advent of Code star count and keeps the
// badge embedded in the repository README in sync with it.
package main

import (
	"fmt"
	"os"

	"github.com/orbidlo/badgesync/internal/cli"
)

func main() {
	if err := cli.Execute(os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "badgesync:", err)
		os.Exit(cli.ExitCode(err))
	}
}
