package main

import (
	"os"

	"github.com/buker/lmci/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
