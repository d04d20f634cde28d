package main

import (
	"log"
	"os"
)

func main() {
	// --dids-worker is an internal re-exec flag (see worker.go / the
	// serverloop package's fork implementation), not part of the
	// user-facing cobra command tree.
	if len(os.Args) > 1 && os.Args[1] == "--dids-worker" {
		os.Exit(runWorker(os.Args[2:]))
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v\n", err)
		os.Exit(1)
	}
}
