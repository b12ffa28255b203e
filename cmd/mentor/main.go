// Command mentor is the entry point for the persona question-answering
// assistant. It provides a CLI (via Cobra) for ingesting source material and
// asking questions, plus an HTTP server for interactive use.
package main

import (
	"fmt"
	"os"

	"github.com/mentorhq/mentor-go/cmd/mentor/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
