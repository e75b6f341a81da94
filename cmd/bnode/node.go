package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/KilimcininKorOglu/bnode/internal/storage/bnode"
)

// buildCmd handles the build command.
func buildCmd(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	id := fs.Uint64("id", 0, "Node id")
	input := fs.String("input", "", "Input file")
	level := fs.Uint("level", 0, "Node level")
	meta := fs.String("meta", "", "Node metadata")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printBuildUsage(os.Stdout)
		return 0
	}

	if *id == 0 {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return 1
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		return 1
	}
	if *level > 0xffff {
		fmt.Fprintf(os.Stderr, "Error: -level %d out of range\n", *level)
		return 1
	}

	cfg, store, err := openStore(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	in := os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	n := bnode.New(uint16(*level), cfg.Node.Options()...)
	if err := n.SetMeta([]byte(*meta)); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting meta: %v\n", err)
		return 1
	}
	if err := loadEntries(n, in); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := store.Put(bnode.ChildRef(*id), n); err != nil {
		fmt.Fprintf(os.Stderr, "Error storing node: %v\n", err)
		return 1
	}

	fmt.Printf("Stored node %d\n", *id)
	fmt.Printf("  Level:   %d\n", n.Level())
	fmt.Printf("  Entries: %d\n", n.Nentry())
	fmt.Printf("  Size:    %d/%d bytes\n", n.NodeSize(), n.MaxNodeSize())
	return 0
}

// loadEntries adds one entry per "key<TAB>value" line of r. Internal nodes
// read a decimal child id in place of the value. Blank lines and lines
// starting with '#' are skipped.
func loadEntries(n *bnode.Bnode, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), bnode.MaxKeyLen+n.MaxNodeSize())

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		key, value, ok := strings.Cut(text, "\t")
		if !ok {
			return errors.Newf("line %d: expected key<TAB>value", line)
		}

		var err error
		if n.IsLeaf() {
			err = n.AddKv([]byte(key), []byte(value), bnode.NoChild, true)
		} else {
			child, perr := strconv.ParseUint(value, 10, 64)
			if perr != nil {
				return errors.Wrapf(perr, "line %d: child id", line)
			}
			err = n.AddKv([]byte(key), nil, bnode.ChildRef(child), true)
		}
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
	}
	return errors.Wrap(scanner.Err(), "read input")
}

// dumpCmd handles the dump command.
func dumpCmd(args []string) int {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	id := fs.Uint64("id", 0, "Node id")
	zeroCopy := fs.Bool("zero-copy", false, "Import without copying")
	reverse := fs.Bool("reverse", false, "Print entries from last to first")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printDumpUsage(os.Stdout)
		return 0
	}

	if *id == 0 {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return 1
	}

	_, store, err := openStore(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	n, err := store.Get(bnode.ChildRef(*id), !*zeroCopy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading node: %v\n", err)
		return 1
	}

	image, err := n.MarshalBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting node: %v\n", err)
		return 1
	}
	hdr, err := bnode.ReadHeader(image)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading header: %v\n", err)
		return 1
	}

	fmt.Printf("Node %d\n", *id)
	fmt.Printf("  Size:    %d bytes\n", hdr.Size)
	fmt.Printf("  Level:   %d\n", hdr.Level)
	fmt.Printf("  Flags:   %s\n", hdr.Flags)
	fmt.Printf("  Mode:    %s\n", n.Mode())
	fmt.Printf("  Entries: %d\n", hdr.Nentry)
	fmt.Printf("  Meta:    %q\n", n.Meta())
	fmt.Println()

	it := bnode.NewIterator(n)
	if *reverse {
		for ok := it.End(); ok; ok = it.Prev() {
			printEntry(it)
		}
	} else {
		for ok := it.Valid(); ok; ok = it.Next() {
			printEntry(it)
		}
	}
	return 0
}

// seekCmd handles the seek command.
func seekCmd(args []string) int {
	fs := flag.NewFlagSet("seek", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	id := fs.Uint64("id", 0, "Node id")
	key := fs.String("key", "", "Search key")
	mode := fs.String("mode", "ge", "Seek mode: ge, greater, le")
	count := fs.Int("n", 1, "Number of entries to print")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printSeekUsage(os.Stdout)
		return 0
	}

	if *id == 0 {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return 1
	}
	// The empty key is valid and sorts first, so test presence, not value.
	if !flagSet(fs, "key") {
		fmt.Fprintln(os.Stderr, "Error: -key is required")
		return 1
	}

	var seek func(*bnode.Iterator, []byte) bool
	switch strings.ToLower(*mode) {
	case "ge":
		seek = (*bnode.Iterator).Seek
	case "greater", "gt":
		seek = (*bnode.Iterator).SeekGreater
	case "le":
		seek = (*bnode.Iterator).SeekSmallerOrEqual
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown seek mode %q\n", *mode)
		return 1
	}

	_, store, err := openStore(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	n, err := store.Get(bnode.ChildRef(*id), false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading node: %v\n", err)
		return 1
	}

	it := bnode.NewIterator(n)
	if !seek(it, []byte(*key)) {
		fmt.Fprintf(os.Stderr, "No entry for %s %q\n", *mode, *key)
		return 1
	}
	for i := 0; i < *count && it.Valid(); i++ {
		printEntry(it)
		it.Next()
	}
	return 0
}

// listCmd handles the list command.
func listCmd(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printListUsage(os.Stdout)
		return 0
	}

	_, store, err := openStore(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	ids, err := store.IDs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing nodes: %v\n", err)
		return 1
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return 0
}

// deleteCmd handles the delete command.
func deleteCmd(args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	id := fs.Uint64("id", 0, "Node id")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printDeleteUsage(os.Stdout)
		return 0
	}

	if *id == 0 {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return 1
	}

	_, store, err := openStore(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := store.Delete(bnode.ChildRef(*id)); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting node: %v\n", err)
		return 1
	}
	fmt.Printf("Deleted node %d\n", *id)
	return 0
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printEntry(it *bnode.Iterator) {
	kv, ok := it.Kv()
	if !ok {
		return
	}
	if kv.HasChild() {
		fmt.Printf("%s\t-> %d\n", kv.Key, kv.Child)
		return
	}
	fmt.Printf("%s\t%s\n", kv.Key, kv.Value)
}
