// Command pantry reads and writes the tables and procedures declared in an
// endpoint catalog.
// See docs/ARCHITECTURE.md § CLI.
package main

import "github.com/mesh-intelligence/pantry/internal/cli"

func main() {
	cli.Execute()
}
