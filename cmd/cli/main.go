package main

import (
	"os"

	"github.com/dayleaf-dev/dayleaf/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
