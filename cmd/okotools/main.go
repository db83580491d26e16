// Package main is the entry point for the okotools CLI.
package main

import (
	"os"

	"github.com/cybernetisk/okotools/cmd/okotools/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
