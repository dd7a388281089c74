// Package tracelog implements the Logger/StateDumper log sink: every trace
// line is written to a file prefixed with a millisecond timestamp,
// "<ms>,<payload>".
package tracelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Sink writes timestamped trace lines to an underlying writer, implementing
// trace.LogSink. It is safe for concurrent use so that IPC adapters and the
// scheduler's single goroutine can both log without corrupting output,
// though in practice only the scheduler goroutine calls WriteLog.
type Sink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	start  time.Time
	closer io.Closer
}

// Open creates (or truncates) the log file at path and returns a Sink whose
// timestamps are relative to the moment Open is called.
func Open(path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("tracelog: create %s: %w", path, err)
	}
	return &Sink{w: bufio.NewWriter(f), start: time.Now(), closer: f}, nil
}

// NewSink wraps an arbitrary writer (e.g. os.Stdout, a bytes.Buffer in
// tests) as a timestamped Sink.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: bufio.NewWriter(w), start: time.Now()}
}

// WriteLog writes one timestamped line, "<ms>,<payload>\n".
// A multi-line payload (the state-dump block) is written as a single
// timestamped entry whose payload itself contains embedded newlines,
// matching the source's behavior of timestamping only the first line of
// each logical write.
func (s *Sink) WriteLog(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := time.Since(s.start).Milliseconds()
	if _, err := fmt.Fprintf(s.w, "%d,%s\n", ms, line); err != nil {
		return fmt.Errorf("tracelog: write: %w", err)
	}
	return s.w.Flush()
}

// Close flushes and closes the underlying file, if Open created one.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
