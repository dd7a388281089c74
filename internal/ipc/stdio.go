package ipc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// StdioAdapter is the plain line-oriented transport: each inbound line is
// "name,value" and each outbound emission is written the same way,
// terminated by "\n". An inbound line reading just "quit" ends the stream.
type StdioAdapter struct {
	r io.Reader
	w io.Writer

	mu      sync.Mutex
	scanner *bufio.Scanner
	inbound chan Message
	closed  bool
}

// NewStdio creates a StdioAdapter reading lines from r and writing
// emissions to w.
func NewStdio(r io.Reader, w io.Writer) *StdioAdapter {
	return &StdioAdapter{r: r, w: w}
}

// Connect has nothing to establish for stdio; it always succeeds.
func (a *StdioAdapter) Connect(ctx context.Context) error {
	a.scanner = bufio.NewScanner(a.r)
	return nil
}

// Listen starts a goroutine reading lines from the underlying reader and
// parsing each into a Message, until EOF or ctx cancellation.
func (a *StdioAdapter) Listen(ctx context.Context) (<-chan Message, error) {
	a.inbound = make(chan Message, 16)
	go func() {
		defer close(a.inbound)
		for a.scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			line := a.scanner.Text()
			if line == quitName {
				return
			}
			name, value, ok := parseLine(line)
			if !ok {
				continue
			}
			select {
			case a.inbound <- Message{Name: name, RawLexeme: value}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return a.inbound, nil
}

// Send writes one "name,value\n" line to the underlying writer.
func (a *StdioAdapter) Send(ctx context.Context, msg Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := fmt.Fprintf(a.w, "%s,%s\n", msg.Name, msg.RawLexeme)
	return err
}

// Close marks the adapter closed; the reader side winds down on its own
// once Scan returns false.
func (a *StdioAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// parseLine splits a "name,value" line into its two parts. A line with no
// comma, or an empty name, is not a valid signal update.
func parseLine(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ',')
	if idx <= 0 {
		return "", "", false
	}
	return line[:idx], line[idx+1:], true
}
