package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes formatted entries to stderr.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns an output writing to stderr.
func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{w: os.Stderr}
}

// NewWriterOutput returns an output writing to an arbitrary writer.
func NewWriterOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

// Write writes the formatted entry.
func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(formatted)
	return err
}

// Close is a no-op for console outputs.
func (o *ConsoleOutput) Close() error { return nil }

// CaptureOutput records entries in memory for test assertions.
type CaptureOutput struct {
	mu      sync.Mutex
	entries []Entry
}

// NewCaptureOutput returns an empty capture output.
func NewCaptureOutput() *CaptureOutput { return &CaptureOutput{} }

// Write records a copy of the entry.
func (o *CaptureOutput) Write(entry *Entry, _ []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e := *entry
	e.Fields = make(Fields, len(entry.Fields))
	for k, v := range entry.Fields {
		e.Fields[k] = v
	}
	o.entries = append(o.entries, e)
	return nil
}

// Close is a no-op.
func (o *CaptureOutput) Close() error { return nil }

// Entries returns a snapshot of recorded entries.
func (o *CaptureOutput) Entries() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Entry, len(o.entries))
	copy(out, o.entries)
	return out
}

// CountMessage returns how many recorded entries carry the message at the level.
func (o *CaptureOutput) CountMessage(level Level, msg string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if e.Level == level && e.Message == msg {
			n++
		}
	}
	return n
}
