package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/appstate"
)

// Command is one CLI subcommand.
type Command struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Run         func(ctx context.Context, env *Env, args []string) error
}

// Env is what every command runs against.
type Env struct {
	App *appstate.App
	Out io.Writer
}

// NewFlagSet creates a flag set that reports parse errors instead of exiting.
func (c *Command) NewFlagSet(w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(c.Name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { c.PrintUsage(w) }
	return fs
}

func (c *Command) PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "%s\n\n", c.Description)
	fmt.Fprintf(w, "USAGE:\n    %s\n\n", c.Usage)
	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "EXAMPLES:\n")
		for _, example := range c.Examples {
			fmt.Fprintf(w, "    %s\n", example)
		}
	}
}

// CommandRegistry manages all CLI commands.
type CommandRegistry struct {
	commands map[string]*Command
	order    []string
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]*Command)}
}

func (r *CommandRegistry) Register(cmd *Command) {
	if _, exists := r.commands[cmd.Name]; !exists {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// Lookup resolves args[0] to a command. Help requests return nil, nil.
func (r *CommandRegistry) Lookup(args []string) (*Command, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("no command specified")
	}
	switch args[0] {
	case "help", "-h", "--help":
		return nil, nil
	}
	cmd, ok := r.commands[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd, nil
}

func (r *CommandRegistry) PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "safescan - food safety scanner (device client)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "    safescan <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	for _, name := range r.order {
		fmt.Fprintf(w, "    %-10s %s\n", name, r.commands[name].Description)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'safescan <command> -h' for more information on a command.")
}
