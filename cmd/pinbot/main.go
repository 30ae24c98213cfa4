// Command pinbot keeps under-replicated catalog media pinned on a local
// IPFS node.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/pinbot/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
