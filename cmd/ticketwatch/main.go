// Package main is the entry point for the ticketwatch CLI.
package main

import (
	"os"

	"github.com/jmylchreest/ticketwatch/cmd/ticketwatch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
