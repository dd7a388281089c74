// Package replay implements the ReplayDriver: it reads a prior run's trace
// log and re-injects the ingress lines it finds as
// synthetic ingress events at the head of a fresh run, so that run can be
// reproduced deterministically without a live IPC source. Only the lines a
// live run would itself have logged as ingress are replayed; derived
// emissions recorded in the same trace are never re-injected, since the
// engine will reproduce them on its own from the replayed ingress.
package replay

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Event is one signal update recovered from a trace log, ready to be
// enqueued as ingress.
type Event struct {
	Name      string
	RawLexeme string
}

// stripTimestamp strips the "<ms>," timestamp tracelog.Sink writes ahead of
// every line, returning the original trace payload.
func stripTimestamp(line string) (string, bool) {
	idx := strings.IndexByte(line, ',')
	if idx < 0 {
		return "", false
	}
	if _, err := strconv.Atoi(line[:idx]); err != nil {
		return "", false
	}
	return line[idx+1:], true
}

// isIngressLine reports whether payload looks like an ingress line
// ("name,id,value") rather than one of the other trace line shapes
// (condition:, parent condition:, State = {, etc.), which never start with
// a signal name followed by a second comma-separated integer id.
func isIngressLine(payload string) (name, rawLexeme string, ok bool) {
	parts := strings.SplitN(payload, ",", 3)
	if len(parts) != 3 {
		return "", "", false
	}
	if _, err := strconv.ParseUint(parts[1], 10, 32); err != nil {
		return "", "", false
	}
	if parts[0] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

// Load reads every ingress event from a trace log previously written by
// tracelog.Sink, in the order it was recorded. Emitted-signal lines
// share the same "name,id,value"
// shape as ingress lines in the log; distinguishing the two requires
// external knowledge of which names were ever received versus derived, so
// callers should filter Load's result against their own signal dictionary
// and derived-signal set before replaying: derived emissions are never
// re-injected.
func Load(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		payload, ok := stripTimestamp(scanner.Text())
		if !ok {
			continue
		}
		name, rawLexeme, ok := isIngressLine(payload)
		if !ok {
			continue
		}
		events = append(events, Event{Name: name, RawLexeme: rawLexeme})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// FilterIngress keeps only the events whose name isInputSignal reports true
// for, discarding derived/unconditional emissions that happened to share an
// ingress-shaped trace line: derived emissions are never re-injected.
func FilterIngress(events []Event, isInputSignal func(name string) bool) []Event {
	var kept []Event
	for _, ev := range events {
		if isInputSignal(ev.Name) {
			kept = append(kept, ev)
		}
	}
	return kept
}

// Driver replays a fixed sequence of Events, one per call to Next, for an
// engine loop that injects each as ingress at the scheduler head before
// accepting any live input.
type Driver struct {
	events []Event
	pos    int
}

// NewDriver creates a Driver over a filtered event sequence (ingress-only,
// per Load's documented caveat).
func NewDriver(events []Event) *Driver {
	return &Driver{events: events}
}

// Next returns the next replay event and true, or false once every event
// has been consumed.
func (d *Driver) Next() (Event, bool) {
	if d.pos >= len(d.events) {
		return Event{}, false
	}
	ev := d.events[d.pos]
	d.pos++
	return ev, true
}

// Remaining reports how many replay events are still pending.
func (d *Driver) Remaining() int {
	return len(d.events) - d.pos
}
