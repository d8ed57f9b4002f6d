// Command eqsat drives an equality-saturation engine from the command
// line: run a preset to completion, step through it interactively, or
// serve the HTTP/gRPC API backed by a configurable repository.
package main

import (
	"github.com/eqsat/eqsat/cmd/cli/cmd"
)

func main() {
	cmd.Execute()
}
