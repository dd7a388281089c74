package trace

import "github.com/collabora/vsm/internal/vsmvalue"

// LogSink receives every trace line: ingress, state dumps, condition
// evaluations, parent-context lines, failure lines, emitted signals and the
// end-of-run recap.
type LogSink interface {
	WriteLog(line string) error
}

// EgressSink receives only emitted signals, the IPC-facing subset of the
// trace.
type EgressSink interface {
	Emit(name string, id uint32, valueLexeme string) error
}

// Observer receives a copy of every log line, for non-authoritative
// consumers (audit, notify, dashboard). Observe runs on a goroutine of its
// own; Emitter drops a line for a saturated observer rather than stall.
type Observer interface {
	Observe(line string)
}

// Emitter drives the two authoritative sinks (log, egress) in the order
// the scheduler produces trace lines, and fans a copy of every log line out
// to any registered Observers without letting a slow observer affect the
// authoritative path.
type Emitter struct {
	log       LogSink
	egress    EgressSink
	observers []chan string
	recap     []recapEntry
}

type recapEntry struct {
	name string
	id   uint32
	v    vsmvalue.Value
}

// New creates an Emitter writing to log and egress. egress may be nil, for
// example during replay-only runs: replayed events are never forwarded to
// an EgressSink adapter.
func New(log LogSink, egress EgressSink) *Emitter {
	return &Emitter{log: log, egress: egress}
}

// AddObserver registers obs to receive a copy of every logged line over a
// bounded channel; a full channel drops the line rather than block.
func (e *Emitter) AddObserver(obs Observer) {
	ch := make(chan string, 256)
	e.observers = append(e.observers, ch)
	go func() {
		for line := range ch {
			obs.Observe(line)
		}
	}()
}

func (e *Emitter) log1(line string) {
	if e.log != nil {
		e.log.WriteLog(line)
	}
	for _, ch := range e.observers {
		select {
		case ch <- line:
		default:
		}
	}
}

// Ingress logs a raw inbound signal line.
func (e *Emitter) Ingress(name string, id uint32, rawLexeme string) {
	e.log1(IngressLine(name, id, rawLexeme))
}

// StateDump logs a full state snapshot.
func (e *Emitter) StateDump(names []string, get func(string) vsmvalue.Value) {
	e.log1(StateDump(names, get))
}

// Condition logs a predicate evaluation line.
func (e *Emitter) Condition(exprSource string, result bool) {
	e.log1(ConditionLine(exprSource, result))
}

// ParentCondition logs one ancestor line inside a monitor's trace.
func (e *Emitter) ParentCondition(lhs, rhs string) {
	e.log1(ParentConditionLine(lhs, rhs))
}

// NotMet logs a monitor deadline-miss line.
func (e *Emitter) NotMet(which string, ms int) {
	e.log1(NotMetLine(which, ms))
}

// IgnoredSequence logs the Sequence-gating line.
func (e *Emitter) IgnoredSequence(signal string) {
	e.log1(IgnoredSequenceLine(signal))
}

// InvalidMessage logs the malformed-ingress line followed by the raw
// payload.
func (e *Emitter) InvalidMessage(rawPayload string) {
	e.log1(InvalidMessageLine)
	e.log1(rawPayload)
}

// Emit produces a derived or unconditional signal: it is written to the log
// (so it appears in the ordered trace), forwarded to the EgressSink (unless
// this Emitter has none, e.g. during replay), and recorded for the
// end-of-run recap.
func (e *Emitter) Emit(name string, id uint32, v vsmvalue.Value) error {
	e.log1(EmittedLine(name, id, v))
	e.recap = append(e.recap, recapEntry{name: name, id: id, v: v})
	if e.egress != nil {
		return e.egress.Emit(name, id, v.QuotedLiteral())
	}
	return nil
}

// Recap writes the end-of-run recap lines: each emitted signal repeated in
// insertion order.
func (e *Emitter) Recap() {
	for _, r := range e.recap {
		e.log1(EmittedLine(r.name, r.id, r.v))
	}
}

// Close shuts down observer goroutines. Call once after the run completes.
func (e *Emitter) Close() {
	for _, ch := range e.observers {
		close(ch)
	}
}
