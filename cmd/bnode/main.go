// Package main provides the entry point for the bnode CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	exitCode := run(os.Args)
	os.Exit(exitCode)
}

// run executes the CLI and returns an exit code.
// This is separated from main() to facilitate testing.
func run(args []string) int {
	if len(args) < 2 {
		printUsage(os.Stdout)
		return 1
	}

	switch args[1] {
	case "build":
		return buildCmd(args[2:])
	case "dump":
		return dumpCmd(args[2:])
	case "seek":
		return seekCmd(args[2:])
	case "list":
		return listCmd(args[2:])
	case "delete":
		return deleteCmd(args[2:])
	case "config":
		return configCmd(args[2:])
	case "version":
		return versionCmd(args[2:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[1])
		fmt.Fprintln(os.Stderr, "Run 'bnode help' for usage.")
		return 1
	}
}
