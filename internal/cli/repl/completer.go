package repl

import (
	"sort"
	"strings"

	"github.com/urfave/cli/v2"
)

// builtins are handled by the REPL itself.
var builtins = []string{"exit", "quit", "history"}

// Completer knows the command names of an application.
type Completer struct {
	top      map[string]bool
	commands []string
}

// NewCompleter collects command and subcommand paths from app.
func NewCompleter(app *cli.App) *Completer {
	c := &Completer{top: make(map[string]bool)}
	for _, b := range builtins {
		c.top[b] = true
		c.commands = append(c.commands, b)
	}
	c.top["help"] = true
	c.top["h"] = true
	for _, cmd := range app.Commands {
		c.add("", cmd)
	}
	sort.Strings(c.commands)
	return c
}

func (c *Completer) add(parent string, cmd *cli.Command) {
	for _, name := range cmd.Names() {
		if parent == "" {
			c.top[name] = true
		}
	}
	path := strings.TrimSpace(parent + " " + cmd.Name)
	c.commands = append(c.commands, path)
	for _, sub := range cmd.Subcommands {
		c.add(path, sub)
	}
}

// Known reports whether name is a top-level command, alias or builtin.
func (c *Completer) Known(name string) bool {
	return c.top[name]
}

// Complete returns the command paths starting with prefix.
func (c *Completer) Complete(prefix string) []string {
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}
