package main

import (
	"os"

	"github.com/rustyeddy/ouro/cmd/ouro/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
