package main

import (
	"os"

	"github.com/pklcore/pklcore/cmd/pklcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
