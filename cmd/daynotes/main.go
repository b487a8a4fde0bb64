package main

import (
	"os"

	"tableflip.dev/daynotes/pkg/commands"
)

func main() {
	// cobra has already printed the error and usage.
	if err := commands.New().Execute(); err != nil {
		os.Exit(1)
	}
}
