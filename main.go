// The main package for the eizocrawl executable.
package main

import (
	"github.com/hsugimura/eizocrawl/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
