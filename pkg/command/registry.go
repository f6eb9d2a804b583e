package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrUnknownCommand    = errors.New("unknown command")
	ErrDuplicateCommand  = errors.New("command already registered")
	ErrConsoleNotAllowed = errors.New("command cannot be run from the console")
)

// Executor runs a command. Feedback goes to src; the returned error is
// for logging and journaling only.
type Executor func(ctx context.Context, src Source, args []string) error

// Command is a sub-command registered under the root label.
type Command struct {
	Name                string
	Description         string
	ExecutableOnConsole bool
	Execute             Executor
}

// Invocation describes one dispatched command, passed to hooks after it ran.
type Invocation struct {
	Source   string
	Console  bool
	Command  string
	Args     []string
	Start    time.Time
	Duration time.Duration
	Err      error
}

// Hook observes invocations.
type Hook func(inv Invocation)

// Registry maps sub-command names to executors.
type Registry struct {
	root     string
	logger   *slog.Logger
	mu       sync.RWMutex
	commands map[string]*Command
	hooks    []Hook
}

// NewRegistry creates a registry for commands under root (e.g. "apitest").
func NewRegistry(root string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		root:     strings.ToLower(root),
		logger:   logger,
		commands: make(map[string]*Command),
	}
}

// Root returns the root label.
func (r *Registry) Root() string {
	return r.root
}

// Register adds a command. Names are case-insensitive.
func (r *Registry) Register(cmd Command) error {
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if cmd.Execute == nil {
		return fmt.Errorf("executor cannot be nil for command '%s'", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	cmd.Name = name
	r.commands[name] = &cmd

	r.logger.Info("Registered command", "root", r.root, "name", name)
	return nil
}

// Commands returns the registered commands sorted by name.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// OnDispatch adds a hook called after every dispatched command.
func (r *Registry) OnDispatch(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Parse splits a command line into the sub-command name and its arguments.
// A leading slash and the root label are optional.
func Parse(root, line string) (name string, args []string) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) > 0 && strings.EqualFold(fields[0], root) {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// Dispatch parses line and runs the matching command for src.
func (r *Registry) Dispatch(ctx context.Context, src Source, line string) error {
	name, args := Parse(r.root, line)
	if name == "" {
		r.sendUsage(src)
		return nil
	}

	r.mu.RLock()
	cmd, ok := r.commands[name]
	hooks := append([]Hook(nil), r.hooks...)
	r.mu.RUnlock()

	inv := Invocation{
		Source:  src.Name(),
		Console: src.IsConsole(),
		Command: name,
		Args:    args,
		Start:   time.Now(),
	}

	switch {
	case !ok:
		src.SendMessage(fmt.Sprintf("Unknown command: %s", name))
		r.sendUsage(src)
		inv.Err = fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	case src.IsConsole() && !cmd.ExecutableOnConsole:
		src.SendMessage(fmt.Sprintf("/%s %s can only be run by a player", r.root, name))
		inv.Err = fmt.Errorf("%w: %s", ErrConsoleNotAllowed, name)
	default:
		inv.Err = cmd.Execute(ctx, src, args)
	}
	inv.Duration = time.Since(inv.Start)

	if inv.Err != nil {
		r.logger.Warn("Command failed", "source", inv.Source, "command", name, "args", args, "error", inv.Err)
	} else {
		r.logger.Debug("Command executed", "source", inv.Source, "command", name, "args", args, "duration", inv.Duration)
	}

	for _, h := range hooks {
		h(inv)
	}
	return inv.Err
}

func (r *Registry) sendUsage(src Source) {
	cmds := r.Commands()
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	src.SendMessage(fmt.Sprintf("Usage: /%s <%s>", r.root, strings.Join(names, "|")))
}
