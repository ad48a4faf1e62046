package main

import (
	"os"

	"github.com/hmoon/edgeforge/cmd/edge/commands"
)

// main is the entry point for the edgeforge CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
