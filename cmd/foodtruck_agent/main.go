// Package main provides the foodtruck_agent CLI: the HTTP API, the scheduler,
// and one-shot commands for the pipeline, jobs, discovery and deduplication.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
