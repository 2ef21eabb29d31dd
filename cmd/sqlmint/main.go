// Command sqlmint generates typed data-access code from annotated SQL files.
package main

import (
	"os"

	"github.com/sqlmint-labs/sqlmint/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
