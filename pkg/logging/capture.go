package logging

import (
	"strings"
	"sync"
)

// captureSize is how many lines a CaptureWriter keeps.
const captureSize = 50

// CaptureWriter is a thread-safe writer that keeps the most recent lines.
type CaptureWriter struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

// NewCaptureWriter returns an empty writer.
func NewCaptureWriter() *CaptureWriter {
	return &CaptureWriter{lines: make([]string, captureSize)}
}

// ServerCapture receives the server log at INFO and above.
var ServerCapture = NewCaptureWriter()

// EventCapture receives one line per host event.
var EventCapture = NewCaptureWriter()

// Write implements io.Writer. Each call is stored as one line.
func (w *CaptureWriter) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines[w.next] = line
	w.next = (w.next + 1) % len(w.lines)
	if w.next == 0 {
		w.full = true
	}
	return len(p), nil
}

// Last returns the most recent line, or "" if nothing was written.
func (w *CaptureWriter) Last() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.full && w.next == 0 {
		return ""
	}
	return w.lines[(w.next-1+len(w.lines))%len(w.lines)]
}

// Lines returns up to n recent lines, oldest first.
func (w *CaptureWriter) Lines(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	count := w.next
	if w.full {
		count = len(w.lines)
	}
	if n <= 0 || n > count {
		n = count
	}
	out := make([]string, 0, n)
	for i := n; i > 0; i-- {
		out = append(out, w.lines[(w.next-i+len(w.lines))%len(w.lines)])
	}
	return out
}
