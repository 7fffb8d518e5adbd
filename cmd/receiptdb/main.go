// Command receiptdb normalizes NEAR receipts into relational rows.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/receiptdb/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands print their own failures. Anything else is a flag or usage
	// error that cobra was told not to print.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(cli.GetExitCode(err))
}
