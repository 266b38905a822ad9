package main

import (
	"os"

	"github.com/tobsdb/sqlanalyzer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
