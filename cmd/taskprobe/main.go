// Package main is the single-binary entrypoint for taskprobe,
// a load-and-verify harness for task-processing services.
package main

import "github.com/taskprobe/taskprobe/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
