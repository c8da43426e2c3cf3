// Package main is the entry point for the calcdown editor.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/calcdown/internal/app"
	"github.com/dshills/calcdown/internal/tui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, file := parseFlags()

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: reading %s: %v\n", file, err)
			return 1
		}
		opts.Text = string(data)
	}

	ui, err := tui.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer ui.App().Close()

	// Handle signals for graceful shutdown.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		ui.Quit()
	}()

	if err := ui.Run(); err != nil {
		if errors.Is(err, tui.ErrQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() (app.Options, string) {
	var opts app.Options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.BoolVar(&opts.WatchConfig, "watch-config", true, "Reload configuration on change")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Calcdown - markdown editor with live calculations\n\n")
		fmt.Fprintf(os.Stderr, "Usage: calcdown [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  calcdown                    Open with an empty document\n")
		fmt.Fprintf(os.Stderr, "  calcdown budget.md          Open a document\n")
		fmt.Fprintf(os.Stderr, "  calcdown -c conf.toml       Use a specific configuration\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Calcdown %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	return opts, flag.Arg(0)
}
