package command

import (
	"fmt"
	"io"
	"sync"
)

// Source is whoever invoked a command: a connected player or the console.
type Source interface {
	Name() string
	IsConsole() bool
	SendMessage(msg string)
}

// ConsoleSource writes replies to w, one per line.
type ConsoleSource struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSource returns a console source writing to w.
func NewConsoleSource(w io.Writer) *ConsoleSource {
	return &ConsoleSource{w: w}
}

func (c *ConsoleSource) Name() string    { return "CONSOLE" }
func (c *ConsoleSource) IsConsole() bool { return true }

func (c *ConsoleSource) SendMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, msg)
}

// CaptureSource collects replies in memory. The API uses it to return
// command output in the HTTP response.
type CaptureSource struct {
	mu       sync.Mutex
	name     string
	console  bool
	messages []string
}

// NewCaptureSource returns a capturing source with the given identity.
func NewCaptureSource(name string, console bool) *CaptureSource {
	return &CaptureSource{name: name, console: console}
}

func (c *CaptureSource) Name() string    { return c.name }
func (c *CaptureSource) IsConsole() bool { return c.console }

func (c *CaptureSource) SendMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of everything sent so far.
func (c *CaptureSource) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.messages))
	copy(out, c.messages)
	return out
}
