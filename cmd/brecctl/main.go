// brecctl is a REPL/CLI for creating, inspecting, and appending to brec
// storage files.
//
// Usage:
//
//	brecctl <storage-file>              Open an existing (or new) storage file
//	brecctl new [opts] <storage-file>   Create a new storage file
//
// Options for 'new':
//
//	-c, --slot-capacity   Packets per slot (default: from config)
//	-m, --max-packet-size Maximum packet size in bytes, 0 disables (default: from config)
//	-t, --lock-timeout-ms How long to wait for the file lock, in milliseconds
//
// Commands (in REPL):
//
//	insert <seq> <kind> <host> [message]   Insert a demo packet
//	nth <i>                                Show the packet at index i
//	count                                  Count packets known to the reader
//	iter [limit]                           List packets in storage order
//	watch [seconds]                        Watch the file for growth via the observer
//	info                                   Show storage file info
//	help                                   Show this help
//	exit / quit / q                        Exit
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/brecio/brec/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()

		return errors.New("missing command or storage file path")
	}

	if os.Args[1] == "new" {
		return runNew(os.Args[2:])
	}

	return runOpen(os.Args[1:])
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  brecctl <storage-file>              Open an existing (or new) storage file")
	fmt.Fprintln(os.Stderr, "  brecctl new [opts] <storage-file>   Create a new storage file")
}

func runNew(args []string) error {
	fs := pflag.NewFlagSet("new", pflag.ExitOnError)

	cfg := DefaultConfig()

	fs.IntVarP(&cfg.SlotCapacity, "slot-capacity", "c", cfg.SlotCapacity, "packets per slot")
	fs.Uint64VarP(&cfg.MaxPacketSize, "max-packet-size", "m", cfg.MaxPacketSize, "maximum packet size in bytes, 0 disables")
	fs.IntVarP(&cfg.LockTimeoutMillis, "lock-timeout-ms", "t", cfg.LockTimeoutMillis, "milliseconds to wait for the file lock")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: brecctl new [options] <storage-file>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()

		return errors.New("missing storage file path")
	}

	path := fs.Arg(0)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("storage file already exists: %s (use 'brecctl %s' to open it)", path, path)
	}

	return openREPL(path, cfg)
}

func runOpen(args []string) error {
	if len(args) < 1 {
		printUsage()

		return errors.New("missing storage file path")
	}

	path := args[0]

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(workDir, os.Environ())
	if err != nil {
		return err
	}

	return openREPL(path, cfg)
}

func openREPL(path string, cfg Config) error {
	writer, err := storage.OpenWriter(path, cfg.ToOptions())
	if err != nil {
		return fmt.Errorf("opening writer: %w", err)
	}
	defer writer.Close()

	repl, err := newREPL(path, cfg, writer)
	if err != nil {
		return err
	}
	defer repl.reader.Close()

	return repl.Run()
}
