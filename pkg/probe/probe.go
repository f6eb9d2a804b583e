// Package probe runs the startup self-checks of the test extension.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cameraapitest/pkg/host"
	"cameraapitest/pkg/journal"
)

// DefaultTimeout bounds a single check.
const DefaultTimeout = 5 * time.Second

// Check reports nil when the probed dependency is usable.
type Check func(ctx context.Context) error

// Probe is a named startup check. A failing Critical probe aborts startup.
type Probe struct {
	Name     string
	Check    Check
	Critical bool
}

// Result is the outcome of one probe.
type Result struct {
	Probe    Probe
	Err      error
	Duration time.Duration
}

// Run executes probes in order, each under its own timeout.
func Run(ctx context.Context, timeout time.Duration, probes []Probe) []Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	results := make([]Result, len(probes))
	for i, p := range probes {
		start := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := p.Check(checkCtx)
		cancel()
		results[i] = Result{Probe: p, Err: err, Duration: time.Since(start)}
	}
	return results
}

// Summarize logs every result and joins the errors of failed critical probes.
func Summarize(logger *slog.Logger, results []Result) error {
	if logger == nil {
		logger = slog.Default()
	}
	var critical []error
	for _, r := range results {
		if r.Err == nil {
			logger.Info("Startup check passed", "check", r.Probe.Name, "duration", r.Duration.Round(time.Millisecond))
			continue
		}
		if r.Probe.Critical {
			logger.Error("Startup check failed", "check", r.Probe.Name, "error", r.Err)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Err))
		} else {
			logger.Warn("Startup check failed", "check", r.Probe.Name, "error", r.Err)
		}
	}
	return errors.Join(critical...)
}

// Journal verifies the journal accepts writes and reads them back.
func Journal(st journal.StateStore) Probe {
	return Probe{
		Name:     "journal",
		Critical: true,
		Check: func(ctx context.Context) error {
			if _, ok := st.(journal.Nop); ok {
				return nil
			}
			want := strconv.FormatInt(time.Now().UnixNano(), 10)
			if err := st.SetState(ctx, "probe", want); err != nil {
				return err
			}
			got, ok := st.GetState(ctx, "probe")
			if !ok || got != want {
				return fmt.Errorf("read back %q, want %q", got, want)
			}
			return nil
		},
	}
}

// Connections warns when nobody is online, since every command would be a no-op.
func Connections(h host.Host) Probe {
	return Probe{
		Name: "connections",
		Check: func(context.Context) error {
			if len(h.OnlineConnections()) == 0 {
				return errors.New("no online connections")
			}
			return nil
		},
	}
}
