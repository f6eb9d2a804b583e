package logging

import "log/slog"

// EnableTrace turns on high-volume debug logs such as per-event fan-out.
var EnableTrace = false

// Trace logs at DEBUG level, but only when EnableTrace is set.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}
