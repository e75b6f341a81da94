package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `bnode - B+Tree node builder and inspector

Usage:
  bnode <command> [options]

Commands:
  build       Build a node from a key/value file and store it
  dump        Print a stored node
  seek        Position an iterator on a stored node
  list        List stored node ids
  delete      Remove a stored node
  config      Configuration management
  version     Show version information

Use "bnode <command> -h" for more information about a command.
`)
}

// printBuildUsage prints the build command usage.
func printBuildUsage(w io.Writer) {
	fmt.Fprint(w, `Build a node from a key/value file and store it

Usage:
  bnode build [options]

Options:
  -config string
        Path to configuration file
  -id uint
        Node id to store under (required, non-zero)
  -input string
        Input file, one "key<TAB>value" pair per line (required, "-" for stdin)
  -level uint
        Node level, 0 for a leaf (default 0)
        Internal nodes read "key<TAB>child" lines
  -meta string
        Node metadata
  -h, -help
        Show this help message

Environment Variables:
  BNODE_STORE_PATH         Override store path
  BNODE_LOGGING_LEVEL      Override log level
`)
}

// printDumpUsage prints the dump command usage.
func printDumpUsage(w io.Writer) {
	fmt.Fprint(w, `Print a stored node

Usage:
  bnode dump [options]

Options:
  -config string
        Path to configuration file
  -id uint
        Node id (required)
  -zero-copy
        Import the node without copying its buffer
  -reverse
        Print entries from last to first
  -h, -help
        Show this help message
`)
}

// printSeekUsage prints the seek command usage.
func printSeekUsage(w io.Writer) {
	fmt.Fprint(w, `Position an iterator on a stored node

Usage:
  bnode seek [options]

Options:
  -config string
        Path to configuration file
  -id uint
        Node id (required)
  -key string
        Search key (required, may be empty)
  -mode string
        ge: first key >= key, greater: first key > key,
        le: last key <= key (default "ge")
  -n int
        Number of entries to print from the seek position (default 1)
  -h, -help
        Show this help message
`)
}

// printListUsage prints the list command usage.
func printListUsage(w io.Writer) {
	fmt.Fprint(w, `List stored node ids

Usage:
  bnode list [options]

Options:
  -config string
        Path to configuration file
  -h, -help
        Show this help message
`)
}

// printDeleteUsage prints the delete command usage.
func printDeleteUsage(w io.Writer) {
	fmt.Fprint(w, `Remove a stored node

Usage:
  bnode delete [options]

Options:
  -config string
        Path to configuration file
  -id uint
        Node id (required)
  -h, -help
        Show this help message
`)
}

// printConfigUsage prints the config command usage.
func printConfigUsage(w io.Writer) {
	fmt.Fprint(w, `Configuration management

Usage:
  bnode config <subcommand> [options]

Subcommands:
  validate    Validate configuration file
  init        Generate default configuration
  show        Show effective configuration

Use "bnode config <subcommand> -h" for more information.
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  bnode version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}
