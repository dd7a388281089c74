package ipc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// notAcceptable is the sentinel RawLexeme a client sends when it has no
// value to report for a signal; the adapter turns it into an unset update
// rather than forwarding the literal text.
const notAcceptable = "not-acceptable"

// quitName is the signal name that terminates the session. The nullable
// variant ends on any "name,value" line with this name, whatever the value
// (an empty quoted string, as a rule); the plain stdio adapter ends on a
// line reading just "quit".
const quitName = "quit"

// NullableStdioAdapter is the stdio transport variant that additionally
// tolerates a "not-acceptable" value (turned into an unset update, RawLexeme
// ""), and treats a line whose name is "quit" as a clean end-of-stream
// rather than a signal update.
type NullableStdioAdapter struct {
	r io.Reader
	w io.Writer

	mu      sync.Mutex
	scanner *bufio.Scanner
	inbound chan Message
}

// NewNullableStdio creates a NullableStdioAdapter over r/w.
func NewNullableStdio(r io.Reader, w io.Writer) *NullableStdioAdapter {
	return &NullableStdioAdapter{r: r, w: w}
}

func (a *NullableStdioAdapter) Connect(ctx context.Context) error {
	a.scanner = bufio.NewScanner(a.r)
	return nil
}

// Listen behaves like StdioAdapter.Listen, except:
//   - a line whose name is "quit", whatever its value, closes the inbound
//     channel immediately rather than being forwarded as a signal update;
//   - a value of "not-acceptable" is delivered with RawLexeme "" so the
//     engine records the signal as unset instead of literally
//     "not-acceptable".
func (a *NullableStdioAdapter) Listen(ctx context.Context) (<-chan Message, error) {
	a.inbound = make(chan Message, 16)
	go func() {
		defer close(a.inbound)
		for a.scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			name, value, ok := parseLine(a.scanner.Text())
			if !ok {
				continue
			}
			if name == quitName {
				return
			}
			if value == notAcceptable {
				value = ""
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

// Send writes one "name,value\n" line, same wire format as StdioAdapter.
func (a *NullableStdioAdapter) Send(ctx context.Context, msg Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := fmt.Fprintf(a.w, "%s,%s\n", msg.Name, msg.RawLexeme)
	return err
}

func (a *NullableStdioAdapter) Close() error { return nil }
