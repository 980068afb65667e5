package main

import (
	"os"

	"github.com/personaflow/tieredmem/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
