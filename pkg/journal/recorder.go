package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"cameraapitest/pkg/command"
	"cameraapitest/pkg/host"
)

// writeTimeout bounds a single journal write.
const writeTimeout = 5 * time.Second

// Recorder writes host instruction events and dispatched commands to a journal.
type Recorder struct {
	j      Journal
	logger *slog.Logger
}

// NewRecorder creates a recorder for j.
func NewRecorder(j Journal, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{j: j, logger: logger.With("component", "journal")}
}

// Run records instruction events until ctx is done or events is closed.
// Connection events are ignored.
func (r *Recorder) Run(ctx context.Context, events <-chan host.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != host.EventInstruction {
				continue
			}
			r.record(ctx, ev)
		}
	}
}

func (r *Recorder) record(ctx context.Context, ev host.Event) {
	ins := Instruction{
		ConnectionID: ev.ConnectionID,
		Connection:   ev.Connection,
		Kind:         ev.Kind,
		Time:         ev.Time,
	}
	if ev.Payload != nil {
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			r.logger.Warn("Failed to encode instruction payload", "kind", ev.Kind, "error", err)
		} else {
			ins.Payload = data
		}
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := r.j.RecordInstruction(wctx, ins); err != nil {
		r.logger.Error("Failed to record instruction", "connection", ev.ConnectionID, "kind", ev.Kind, "error", err)
	}
}

// Hook returns a dispatcher hook that records every invocation.
func (r *Recorder) Hook() command.Hook {
	return func(inv command.Invocation) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.j.RecordInvocation(ctx, FromCommand(inv)); err != nil {
			r.logger.Error("Failed to record invocation", "command", inv.Command, "error", err)
		}
	}
}
