// Package main is the entry point for kllsim, a host-side simulator
// for the keymap runtime. It loads a layout (or a compiled-in demo
// one), feeds scan events from a replay script or an interactive
// terminal session, and shows the HID output the layout produces.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/keebforge/kllcore/internal/capability"
	"github.com/keebforge/kllcore/internal/engine"
	"github.com/keebforge/kllcore/internal/keymap"
	"github.com/keebforge/kllcore/internal/script"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	LayoutPath string
	ReplayPath string
	Watch      bool
	TickEvery  time.Duration
	LogLevel   string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logger, err := buildLogger(opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	rec := capability.NewRecorder()
	tables, scripts, err := buildTables(opts.LayoutPath, rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading layout: %v\n", err)
		return 1
	}
	if scripts != nil {
		defer scripts.Close()
	}

	eng, err := engine.New(tables, engine.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if opts.ReplayPath != "" {
		if err := runReplay(eng, rec, opts.ReplayPath, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.Watch && opts.LayoutPath != "" {
		w, err := keymap.NewWatcher(opts.LayoutPath, func(path string) (*keymap.Tables, error) {
			t, _, err := buildTables(path, rec)
			return t, err
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: watching layout: %v\n", err)
			return 1
		}
		defer w.Close()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-w.Tables():
					if err := eng.Reload(t); err != nil {
						logger.Warn("reload failed", zap.Error(err))
					}
				case err := <-w.Errors():
					logger.Warn("layout rebuild failed", zap.Error(err))
				}
			}
		}()
	}

	go func() {
		if err := eng.Run(ctx, opts.TickEvery); err != nil && ctx.Err() == nil {
			logger.Error("engine stopped", zap.Error(err))
		}
	}()

	if err := runInteractive(eng, rec); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// buildTables loads and assembles the layout at path, compiling any
// scripted capabilities against out. An empty path selects the
// compiled-in demo layout.
func buildTables(path string, out capability.Output) (*keymap.Tables, *script.Engine, error) {
	if path == "" {
		t, err := keymap.DefaultTables(out)
		return t, nil, err
	}

	layout, err := keymap.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var scripts *script.Engine
	var extra []capability.Descriptor
	if len(layout.Scripts) > 0 {
		scripts = script.NewEngine(out)
		extra, err = scripts.CompileAll(layout.Scripts, filepath.Dir(path))
		if err != nil {
			scripts.Close()
			return nil, nil, err
		}
	}

	tables, err := layout.Build(out, extra)
	if err != nil {
		if scripts != nil {
			scripts.Close()
		}
		return nil, nil, err
	}
	return tables, scripts, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.LayoutPath, "layout", "", "Path to a layout file (.toml, .yaml)")
	flag.StringVar(&opts.LayoutPath, "l", "", "Path to a layout file (shorthand)")
	flag.StringVar(&opts.ReplayPath, "replay", "", "Replay a scan-event script instead of running interactively")
	flag.BoolVar(&opts.Watch, "watch", false, "Reload the layout when its file changes")
	flag.DurationVar(&opts.TickEvery, "tick", time.Millisecond, "Scheduling tick period")
	flag.StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "kllsim - keymap runtime simulator\n\n")
		fmt.Fprintf(os.Stderr, "Usage: kllsim [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  kllsim                          Interactive session with the demo layout\n")
		fmt.Fprintf(os.Stderr, "  kllsim -l board.toml -watch     Load a layout and reload on change\n")
		fmt.Fprintf(os.Stderr, "  kllsim -l board.toml -replay s  Run the scan script s and print output\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if showVersion {
		fmt.Printf("kllsim %s (%s)\n", version, commit)
		os.Exit(0)
	}
	return opts
}
