// Command budgetai answers questions about public budget documents. It
// indexes local documents, answers from them with a local or hosted model,
// and can escalate to a tool-using agent that also searches the ministry's
// website. It runs as a CLI (via Cobra) or as an HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/budgetai-go/cmd/budgetai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
