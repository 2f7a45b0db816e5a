package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"

	"github.com/brecio/brec/examples/demo"
	"github.com/brecio/brec/observer"
	"github.com/brecio/brec/packet"
	"github.com/brecio/brec/storage"
)

// REPL is the interactive command loop for a single open storage file.
type REPL struct {
	path   string
	cfg    Config
	writer *storage.Writer
	reader *storage.Reader
	liner  *liner.State
}

func newREPL(path string, cfg Config, writer *storage.Writer) (*REPL, error) {
	reader, err := storage.OpenReader(path, cfg.ToOptions(), demo.Registry())
	if err != nil {
		return nil, fmt.Errorf("opening reader: %w", err)
	}

	return &REPL{path: path, cfg: cfg, writer: writer, reader: reader}, nil
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".brecctl_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("brecctl - %s\n", r.path)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("brecctl> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return nil
		case "help", "?":
			r.printHelp()
		case "insert":
			r.cmdInsert(args)
		case "nth":
			r.cmdNth(args)
		case "count":
			r.cmdCount()
		case "iter":
			r.cmdIter(args)
		case "watch":
			r.cmdWatch(args)
		case "info":
			r.cmdInfo()
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *REPL) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}

	var buf strings.Builder
	if _, err := r.liner.WriteHistory(&buf); err != nil {
		return
	}

	_ = atomic.WriteFile(path, strings.NewReader(buf.String()))
}

func (r *REPL) completer(line string) []string {
	commands := []string{"insert", "nth", "count", "iter", "watch", "info", "help", "exit", "quit", "q"}

	var out []string

	lower := strings.ToLower(line)

	for _, c := range commands {
		if strings.HasPrefix(c, lower) {
			out = append(out, c)
		}
	}

	return out
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  insert <seq> <kind> <host> [message]   Insert a demo packet")
	fmt.Println("  nth <i>                                Show the packet at index i")
	fmt.Println("  count                                  Count packets known to the reader")
	fmt.Println("  iter [limit]                           List packets in storage order")
	fmt.Println("  watch [seconds]                        Watch the file for growth")
	fmt.Println("  info                                   Show storage file info")
	fmt.Println("  help                                   Show this help")
	fmt.Println("  exit / quit / q                        Exit")
}

func (r *REPL) cmdInsert(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: insert <seq> <kind> <host> [message]")

		return
	}

	seq, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Error parsing seq: %v\n", err)

		return
	}

	kind, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fmt.Printf("Error parsing kind: %v\n", err)

		return
	}

	host := args[2]

	message := ""
	if len(args) >= 4 {
		message = strings.Join(args[3:], " ")
	}

	p, err := demo.NewPacket(seq, uint32(kind), host, message)
	if err != nil {
		fmt.Printf("Error building packet: %v\n", err)

		return
	}

	if err := r.writer.Insert(p); err != nil {
		fmt.Printf("Error inserting: %v\n", err)

		return
	}

	if err := r.writer.Sync(); err != nil {
		fmt.Printf("Error syncing: %v\n", err)

		return
	}

	fmt.Printf("OK: inserted packet (seq=%d kind=%d host=%q)\n", seq, kind, host)
}

func (r *REPL) cmdNth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: nth <i>")

		return
	}

	i, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Error parsing index: %v\n", err)

		return
	}

	if err := r.reader.Reload(); err != nil {
		fmt.Printf("Error reloading: %v\n", err)

		return
	}

	p, err := r.reader.Nth(i)
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	printPacket(p)
}

func (r *REPL) cmdCount() {
	if err := r.reader.Reload(); err != nil {
		fmt.Printf("Error reloading: %v\n", err)

		return
	}

	fmt.Printf("Packets: %d\n", r.reader.Count())
}

func (r *REPL) cmdIter(args []string) {
	limit := 20

	if len(args) >= 1 {
		var err error

		limit, err = strconv.Atoi(args[0])
		if err != nil {
			fmt.Printf("Error parsing limit: %v\n", err)

			return
		}
	}

	if err := r.reader.Reload(); err != nil {
		fmt.Printf("Error reloading: %v\n", err)

		return
	}

	i := 0

	for p, err := range r.reader.Iter() {
		if i >= limit {
			fmt.Printf("... (showing first %d, use 'iter <limit>' for more)\n", limit)

			break
		}

		if err != nil {
			fmt.Printf("Error at index %d: %v\n", i, err)

			return
		}

		fmt.Printf("%3d. ", i)
		printPacket(p)

		i++
	}

	if i == 0 {
		fmt.Println("(empty)")
	}
}

func (r *REPL) cmdWatch(args []string) {
	seconds := 5

	if len(args) >= 1 {
		var err error

		seconds, err = strconv.Atoi(args[0])
		if err != nil {
			fmt.Printf("Error parsing seconds: %v\n", err)

			return
		}
	}

	sensor, wakes, err := observer.NewSensor(r.path)
	if err != nil {
		fmt.Printf("Error starting observer: %v\n", err)

		return
	}
	defer sensor.Close()

	fmt.Printf("Watching %s for %ds...\n", r.path, seconds)

	deadline := time.After(time.Duration(seconds) * time.Second)

	for {
		select {
		case w := <-wakes:
			fmt.Printf("wake: file grew to %d bytes\n", w.Size)
			sensor.Processed(w.Size)
		case <-deadline:
			fmt.Println("done watching")

			return
		}
	}
}

func (r *REPL) cmdInfo() {
	if err := r.reader.Reload(); err != nil {
		fmt.Printf("Error reloading: %v\n", err)

		return
	}

	fmt.Printf("Storage Info:\n")
	fmt.Printf("  Path:            %s\n", r.path)
	fmt.Printf("  Slot capacity:   %d\n", r.cfg.SlotCapacity)
	fmt.Printf("  Max packet size: %d\n", r.cfg.MaxPacketSize)
	fmt.Printf("  Packet count:    %d\n", r.reader.Count())
}

func printPacket(p packet.Packet) {
	fmt.Printf("blocks=%d payload=%v\n", len(p.Blocks), p.Payload != nil)

	for _, b := range p.Blocks {
		switch v := b.(type) {
		case demo.EventBlock:
			fmt.Printf("       event  seq=%d kind=%d\n", v.Seq, v.Kind)
		case demo.OriginBlock:
			fmt.Printf("       origin host=%q\n", strings.TrimRight(string(v.Host[:]), "\x00"))
		}
	}

	if p.Payload != nil {
		fmt.Printf("       payload %q\n", string(p.Payload.Body))
	}
}
