// Package cli provides the plain line-oriented front end: prompt, input
// dispatch, and meta-command handling over an engine console.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/questweave/engine/console"
	"github.com/nathoo/questweave/engine/save"
)

// CLI runs the console over a reader and writer.
type CLI struct {
	Console   *console.Console
	In        io.Reader
	Out       io.Writer
	SavePath  string
	EchoInput bool // echo each input line after the prompt (for script playback)
}

// New creates a CLI wired to the given console.
func New(c *console.Console, savePath string) *CLI {
	return &CLI{
		Console:  c,
		In:       os.Stdin,
		Out:      os.Stdout,
		SavePath: savePath,
	}
}

// Run loops: prompt, input, dispatch, output. It returns when input is
// exhausted or /quit is entered.
func (c *CLI) Run() {
	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		for _, line := range c.Console.Exec(input) {
			c.printLine(line)
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the program
// should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/help":
		for _, line := range console.Help() {
			c.printLine(line)
		}
		c.printLine("System:")
		c.printLine("  /save [path]  — Save progress (default: configured save path)")
		c.printLine("  /load [path]  — Load progress")
		c.printLine("  /state        — Registry summary")
		c.printLine("  /trace        — Toggle trace output")
		c.printLine("  /quit         — Exit")

	case "/state":
		c.cmdState()

	case "/trace":
		c.Console.Trace = !c.Console.Trace
		if c.Console.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(path string) {
	if path == "" {
		path = c.SavePath
	}

	data, err := save.Save(c.Console.M)
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Progress saved to %s.", path))
}

func (c *CLI) cmdLoad(path string) {
	if path == "" {
		path = c.SavePath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	snap, err := save.Load(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	save.Apply(c.Console.M, snap)
	c.printSystem(fmt.Sprintf("Progress loaded from %s (clock %.1fs).", path, snap.Clock))
}

func (c *CLI) cmdState() {
	a, d, f := c.Console.M.Counts()
	c.printSystem(fmt.Sprintf("Active: %d  Completed: %d  Failed: %d  Clock: %.1fs",
		a, d, f, c.Console.M.Clock()))
	for _, line := range c.Console.Exec("quests") {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
