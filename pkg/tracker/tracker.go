package tracker

import (
	"context"
	"sync"
	"sync/atomic"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/host"
)

// Tracker counts command runs and the camera instructions they produced.
type Tracker struct {
	mu           sync.RWMutex
	commands     map[string]*CommandStats
	instructions map[string]*atomic.Int64
	connects     atomic.Int64
	disconnects  atomic.Int64
}

// CommandStats holds counters for one command name.
type CommandStats struct {
	Runs     atomic.Int64
	Failures atomic.Int64
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Commands     map[string]CommandSnapshot `json:"commands"`
	Instructions map[string]int64           `json:"instructions"`
	Connects     int64                      `json:"connects"`
	Disconnects  int64                      `json:"disconnects"`
}

// CommandSnapshot is the copied form of CommandStats.
type CommandSnapshot struct {
	Runs     int64 `json:"runs"`
	Failures int64 `json:"failures"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		commands:     make(map[string]*CommandStats),
		instructions: make(map[string]*atomic.Int64),
	}
}

func (t *Tracker) commandStats(name string) *CommandStats {
	t.mu.RLock()
	s, ok := t.commands[name]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.commands[name]; ok {
		return s
	}
	s = &CommandStats{}
	t.commands[name] = s
	return s
}

func (t *Tracker) kindCounter(kind string) *atomic.Int64 {
	t.mu.RLock()
	c, ok := t.instructions[kind]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.instructions[kind]; ok {
		return c
	}
	c = &atomic.Int64{}
	t.instructions[kind] = c
	return c
}

// TrackCommand records one dispatch.
func (t *Tracker) TrackCommand(name string, err error) {
	s := t.commandStats(name)
	s.Runs.Add(1)
	if err != nil {
		s.Failures.Add(1)
	}
}

// TrackEvent records a host event.
func (t *Tracker) TrackEvent(ev host.Event) {
	switch ev.Type {
	case host.EventConnected:
		t.connects.Add(1)
	case host.EventDisconnected:
		t.disconnects.Add(1)
	case host.EventInstruction:
		t.kindCounter(ev.Kind).Add(1)
	}
}

// Hook returns a registry hook that counts every dispatch.
func (t *Tracker) Hook() command.Hook {
	return func(inv command.Invocation) {
		t.TrackCommand(inv.Command, inv.Err)
	}
}

// Run counts events until ctx is done or the channel closes.
func (t *Tracker) Run(ctx context.Context, events <-chan host.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			t.TrackEvent(ev)
		}
	}
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := Snapshot{
		Commands:     make(map[string]CommandSnapshot, len(t.commands)),
		Instructions: make(map[string]int64, len(t.instructions)),
		Connects:     t.connects.Load(),
		Disconnects:  t.disconnects.Load(),
	}
	for k, v := range t.commands {
		out.Commands[k] = CommandSnapshot{Runs: v.Runs.Load(), Failures: v.Failures.Load()}
	}
	for k, v := range t.instructions {
		out.Instructions[k] = v.Load()
	}
	return out
}
