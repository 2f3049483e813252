// Command shelf is the book catalogue CLI.
package main

import (
	"os"

	"github.com/mesh-intelligence/shelf/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
