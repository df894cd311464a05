package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// NopLogger returns a logger that discards all output.
// Use this in tests to avoid log noise.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// LogCapture collects JSON log lines written by a logger under test
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// CaptureLogger returns a debug-level logger whose output can be inspected
func CaptureLogger() (*slog.Logger, *LogCapture) {
	c := &LogCapture{}
	return slog.New(slog.NewJSONHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug})), c
}

// Write implements io.Writer
func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Entries decodes every captured line. Lines that are not JSON are skipped.
func (c *LogCapture) Entries() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(c.buf.String()), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) == nil {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Find returns the first entry with the given message, or nil
func (c *LogCapture) Find(msg string) map[string]any {
	for _, e := range c.Entries() {
		if e[slog.MessageKey] == msg {
			return e
		}
	}
	return nil
}
