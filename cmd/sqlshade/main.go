// Package main provides the sqlshade CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlshade/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
