package main

import (
	"os"

	"go-invoice-capture/cmd/capture/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
