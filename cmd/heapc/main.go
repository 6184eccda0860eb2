// Command heapc inspects descriptor heap mapping tables and runs the
// lowering pass on a built-in demo shader.
//
// Usage:
//
//	heapc [options] [mapping.yaml]
//
// Examples:
//
//	heapc -hash layout.yaml                  # Print the table digest
//	heapc -lookup 0:3:sampler layout.yaml    # Show the entry covering a binding
//	heapc -demo                              # Lower the demo shader with the demo table
//
// Environment:
//
//	HEAPC_LOG_LEVEL   debug, info, warn or error (default: warn)
//	HEAPC_VERBOSE     shorthand for HEAPC_LOG_LEVEL=debug
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/gogpu/descheap"
	"github.com/gogpu/descheap/heap"
	"github.com/gogpu/descheap/ir"
)

var (
	hash     = flag.Bool("hash", false, "print the mapping table digest")
	lookup   = flag.String("lookup", "", "print the entry covering set:binding:kind")
	demo     = flag.Bool("demo", false, "lower the built-in demo shader")
	validate = flag.Bool("validate", true, "validate IR before and after lowering")
	version  = flag.Bool("version", false, "print version")
)

const heapcVersion = "0.1.0-dev"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("heapc version %s\n", heapcVersion)
		return
	}

	descheap.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()})))

	if err := run(os.Stdout, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, args []string) error {
	var table heap.MappingTable
	switch {
	case len(args) > 1:
		return fmt.Errorf("expected at most one mapping file, got %d", len(args))
	case len(args) == 1:
		var err error
		if table, err = loadMapping(args[0]); err != nil {
			return err
		}
	case *demo:
		table = demoTable()
	default:
		return fmt.Errorf("no mapping file specified")
	}

	if !*hash && *lookup == "" && !*demo {
		printTable(w, table)
		return nil
	}
	if *hash {
		fmt.Fprintln(w, table.Hash())
	}
	if *lookup != "" {
		if err := printLookup(w, table, *lookup); err != nil {
			return err
		}
	}
	if *demo {
		return runDemo(w, table)
	}
	return nil
}

func printTable(w io.Writer, table heap.MappingTable) {
	for i := range table {
		e := &table[i]
		last, ok := e.LastBinding()
		if !ok {
			fmt.Fprintf(w, "%3d: set=%d bindings=none kinds=%s source=%s\n", i, e.DescriptorSet, e.ResourceMask, e.Source.Kind())
			continue
		}
		fmt.Fprintf(w, "%3d: set=%d bindings=%d..%d kinds=%s source=%s\n", i, e.DescriptorSet, e.FirstBinding, last, e.ResourceMask, e.Source.Kind())
	}
	fmt.Fprintf(w, "digest %s\n", table.Hash())
}

// parseLookup parses set:binding:kind.
func parseLookup(s string) (set, binding uint32, kind ir.ResourceKind, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("lookup %q: want set:binding:kind", s)
	}
	set64, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("lookup %q: set: %w", s, err)
	}
	binding64, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("lookup %q: binding: %w", s, err)
	}
	kind, ok := ir.ParseResourceKind(parts[2])
	if !ok {
		return 0, 0, 0, fmt.Errorf("lookup %q: unknown resource kind %q", s, parts[2])
	}
	return uint32(set64), uint32(binding64), kind, nil
}

func printLookup(w io.Writer, table heap.MappingTable, query string) error {
	set, binding, kind, err := parseLookup(query)
	if err != nil {
		return err
	}
	e, ok := table.Find(set, binding, kind)
	if !ok {
		fmt.Fprintf(w, "set=%d binding=%d kind=%s: unmapped\n", set, binding, kind)
		return nil
	}
	fmt.Fprintf(w, "set=%d binding=%d kind=%s: %s %+v\n", set, binding, kind, e.Source.Kind(), e.Source)
	return nil
}

func runDemo(w io.Writer, table heap.MappingTable) error {
	s := demoShader()
	fmt.Fprintf(w, "; before\n%s\n", s)

	opts := descheap.DefaultOptions()
	opts.Validate = *validate
	res, err := descheap.Lower(s, table, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "; after (progress=%v)\n%s\n", res.Progress, s)
	for _, es := range res.EmbeddedSamplers {
		fmt.Fprintf(w, "; embedded sampler %d: %x\n", es.Index, es.Key[:])
	}
	return nil
}

// logLevel reads the log level from the environment.
func logLevel() slog.Level {
	if env.Bool("HEAPC_VERBOSE") {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(env.Str("HEAPC_LOG_LEVEL", "warn"))); err != nil {
		return slog.LevelWarn
	}
	return level
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: heapc [options] [mapping.yaml]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  heapc layout.yaml                 List entries and the digest\n")
	fmt.Fprintf(os.Stderr, "  heapc -hash layout.yaml           Print the digest only\n")
	fmt.Fprintf(os.Stderr, "  heapc -lookup 1:0:uniform_buffer layout.yaml\n")
	fmt.Fprintf(os.Stderr, "  heapc -demo                       Lower the demo shader\n")
}
