// Buildsize bundles a project with esbuild and records the size of every
// emitted asset in a JSON report next to them.
package main

import "github.com/albertocavalcante/buildsize/cmd/buildsize/internal/cli"

func main() {
	cli.Execute()
}
