package main

import (
	"os"

	"github.com/erikbos/moontv-server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
