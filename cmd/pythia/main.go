// Command pythia is the operator-facing entry point: it runs the
// decision loop and exposes the inspection/control subcommands
// operators and test scenarios drive directly against a manifest and
// agent fleet.
package main

import (
	"fmt"
	"os"

	log "github.com/cihub/seelog"

	pythialog "github.com/docc-lab/pythia/internal/log"
)

func main() {
	if err := pythialog.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "pythia: logging init: %v\n", err)
		os.Exit(1)
	}
	defer log.Flush()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pythia: %v\n", err)
		os.Exit(1)
	}
}
