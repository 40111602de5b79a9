// Command rumornode is a single participant process in the UDP rumor
// network; see internal/cli for the command tree.
package main

import (
	"fmt"
	"os"

	"github.com/rumormesh/rumornode/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
