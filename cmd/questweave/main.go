// QuestWeave is a data-driven quest progression engine for games.
// Usage: questweave [--version] [--plain] [--script <file>] [--trace] [--config <file>] [content_directory]
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nathoo/questweave/cli"
	"github.com/nathoo/questweave/config"
	"github.com/nathoo/questweave/engine"
	"github.com/nathoo/questweave/engine/console"
	"github.com/nathoo/questweave/loader"
	"github.com/nathoo/questweave/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	plain := false
	trace := false
	configPath := config.DefaultPath
	var contentDir string
	var scriptFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("questweave %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--script":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--script requires a file path\n")
				os.Exit(1)
			}
			i++
			scriptFile = args[i]
		case "--config":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--config requires a file path\n")
				os.Exit(1)
			}
			i++
			configPath = args[i]
		default:
			if contentDir == "" {
				contentDir = args[i]
			}
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if contentDir != "" {
		cfg.ContentDir = contentDir
	}
	if plain {
		cfg.Plain = true
	}
	if trace {
		cfg.Trace = true
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cat, err := loader.Load(cfg.ContentDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading content: %v\n", err)
		os.Exit(1)
	}

	m := engine.New(cat, engine.Policy{
		MaxActive:      cfg.MaxActive,
		AllowReplay:    cfg.AllowReplay,
		RequireCatalog: cfg.RequireCatalog,
		AutoActivate:   cfg.AutoActivate,
	}, engine.Options{Log: log})

	con := console.New(m)
	con.Trace = cfg.Trace

	// Script mode: open file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := cli.New(con, cfg.SavePath)
		c.In = f
		c.EchoInput = true
		c.Run()
		return
	}

	// Use the plain CLI if configured or stdout is not a terminal.
	if cfg.Plain || !isTerminal() {
		fmt.Printf("questweave %s — %d quests, %d quest-lines loaded\n\n",
			version, len(cat.Quests), len(cat.Lines))
		c := cli.New(con, cfg.SavePath)
		c.Run()
		return
	}

	if err := tui.Run(con, cfg.SavePath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
