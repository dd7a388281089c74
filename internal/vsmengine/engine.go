// Package vsmengine wires the signal dictionary, condition tree, scheduler,
// monitor manager and trace emitter into the single run loop: for every
// ingress, derived-emission or replay event, the whole condition tree is
// re-evaluated to a fixed point before the next event is accepted, with
// the scheduler's Drain driving the loop.
package vsmengine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/collabora/vsm/internal/condition"
	"github.com/collabora/vsm/internal/expr"
	"github.com/collabora/vsm/internal/ipc"
	"github.com/collabora/vsm/internal/monitor"
	"github.com/collabora/vsm/internal/replay"
	"github.com/collabora/vsm/internal/scheduler"
	"github.com/collabora/vsm/internal/signaldict"
	"github.com/collabora/vsm/internal/trace"
	"github.com/collabora/vsm/internal/vsmstate"
	"github.com/collabora/vsm/internal/vsmvalue"
)

// Options configures a new Engine.
type Options struct {
	Dict      *signaldict.Dictionary
	Tree      *condition.Tree
	Log       trace.LogSink
	Ingress   ipc.IngressSource // nil for a replay-only run
	Egress    ipc.EgressSink    // nil during replay-only runs
	Observers []trace.Observer
	Replay    []replay.Event
	Out       io.Writer
}

// Engine owns the full signal-manager run loop: one event drained to a
// fixed point before the next is accepted.
type Engine struct {
	dict   *signaldict.Dictionary
	tree   *condition.Tree
	state  *vsmstate.State
	sched  *scheduler.Scheduler
	emit   *trace.Emitter
	mgr    *monitor.Manager
	out    io.Writer

	ingress ipc.IngressSource
	egress  ipc.EgressSink

	// Per-node evaluation memory, keyed by condition-tree node index:
	// lastActive tracks Emit/Delay edge-triggering, fired tracks
	// UnconditionalEmit's once-only guard, seqCursor tracks a Sequence's
	// current gating step.
	lastActive map[int]bool
	fired      map[int]bool
	seqCursor  map[int]int

	// currentSignal is the name of the signal driving the in-progress
	// handle() pass, so Predicate evaluation only logs a condition line
	// for the node(s) that signal actually reaches. Empty outside of
	// handle() (timer-driven checks always log in full).
	currentSignal string
}

// egressBridge adapts an ipc.EgressSink to the trace.EgressSink interface
// the Emitter expects, carrying the run's context through to Send.
type egressBridge struct {
	ctx context.Context
	snk ipc.EgressSink
}

func (b *egressBridge) Emit(name string, id uint32, valueLexeme string) error {
	return b.snk.Send(b.ctx, ipc.Message{Name: name, RawLexeme: valueLexeme})
}

// New builds an Engine ready to Run. ctx is threaded into the egress bridge
// so Send calls observe the same cancellation as the run loop.
func New(ctx context.Context, opts Options) *Engine {
	e := &Engine{
		dict:       opts.Dict,
		tree:       opts.Tree,
		state:      vsmstate.New(),
		sched:      scheduler.New(),
		out:        opts.Out,
		ingress:    opts.Ingress,
		egress:     opts.Egress,
		lastActive: make(map[int]bool),
		fired:      make(map[int]bool),
		seqCursor:  make(map[int]int),
	}
	if e.out == nil {
		e.out = io.Discard
	}

	var egressIface trace.EgressSink
	if opts.Egress != nil {
		egressIface = &egressBridge{ctx: ctx, snk: opts.Egress}
	}
	e.emit = trace.New(opts.Log, egressIface)
	for _, obs := range opts.Observers {
		e.emit.AddObserver(obs)
	}

	e.mgr = monitor.New(e.sched, e.tree, e.emit, func(monitorNode, bodyNode int) bool {
		e.emitParentChain(monitorNode)
		return e.eval(bodyNode, true)
	})

	driver := replay.NewDriver(opts.Replay)
	for {
		ev, ok := driver.Next()
		if !ok {
			break
		}
		e.sched.Enqueue(scheduler.Event{Kind: scheduler.KindReplay, Name: ev.Name, RawLexeme: ev.RawLexeme})
	}

	return e
}

// Run drives the engine to completion: it connects the ingress transport
// (if any), drains the replay queue, then alternates waiting for the next
// ingress message or timer deadline and draining the scheduler to a fixed
// point, until the ingress stream closes, the scheduler goes permanently
// idle with no live ingress, or ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	defer e.emit.Close()

	var inbound <-chan ipc.Message
	if e.ingress != nil {
		if err := e.ingress.Connect(ctx); err != nil {
			return fmt.Errorf("vsmengine: ingress connect: %w", err)
		}
		defer e.ingress.Close()
		ch, err := e.ingress.Listen(ctx)
		if err != nil {
			return fmt.Errorf("vsmengine: ingress listen: %w", err)
		}
		inbound = ch
	}
	if e.egress != nil {
		if err := e.egress.Connect(ctx); err != nil {
			return fmt.Errorf("vsmengine: egress connect: %w", err)
		}
		defer e.egress.Close()
	}

	fmt.Fprintf(e.out, "engine started\n")
	defer fmt.Fprintf(e.out, "engine stopped\n")

	e.fireUnconditionalEmits()
	e.sched.Drain(e.handle)

	for {
		if inbound == nil && e.sched.Idle() {
			e.emit.Recap()
			return nil
		}

		var timerC <-chan time.Time
		if deadline, ok := e.sched.NextTimerDeadline(); ok {
			wait := deadline - e.sched.Now()
			if wait < 0 {
				wait = 0
			}
			timerC = time.After(wait)
		}

		select {
		case <-ctx.Done():
			e.emit.Recap()
			return nil
		case msg, ok := <-inbound:
			if !ok {
				e.emit.Recap()
				return nil
			}
			e.sched.Enqueue(scheduler.Event{Kind: scheduler.KindIngress, Name: msg.Name, RawLexeme: msg.RawLexeme})
			e.sched.Drain(e.handle)
		case <-timerC:
			e.sched.Drain(e.handle)
		}
	}
}

// handle processes one dequeued scheduler event: ingress/replay events are
// recorded into state and logged, then every rule root is re-evaluated.
// Only the Predicate nodes that actually read ev.Name log a fresh
// "condition:" line for this pass; every other predicate is still computed
// (clause/sequence/monitor bookkeeping needs its current value) but stays
// silent, since nothing about it changed.
func (e *Engine) handle(ev scheduler.Event) {
	switch ev.Kind {
	case scheduler.KindIngress, scheduler.KindReplay:
		v, lexeme := vsmvalue.ParseLexeme(ev.RawLexeme)
		e.emit.Ingress(ev.Name, e.dict.ID(ev.Name), lexeme)
		e.state.Set(ev.Name, v)
	}

	e.emit.StateDump(e.state.Names(), e.state.Get)
	e.currentSignal = ev.Name
	for _, root := range e.tree.Roots {
		e.eval(root, true)
	}
	e.currentSignal = ""
}

// fireUnconditionalEmits evaluates every UnconditionalEmit node once,
// before the run loop starts waiting on ingress or timers, so a run with no
// queued replay events still emits them as its very first trace lines.
// eval's own fired guard keeps this a no-op on any later pass.
func (e *Engine) fireUnconditionalEmits() {
	for _, root := range e.tree.Roots {
		e.fireUnconditionalEmitsIn(root)
	}
}

func (e *Engine) fireUnconditionalEmitsIn(idx int) {
	n := e.tree.Node(idx)
	switch n.Kind {
	case condition.KindUnconditionalEmit:
		e.eval(idx, true)
	case condition.KindClause:
		for _, c := range n.Children {
			e.fireUnconditionalEmitsIn(c)
		}
	case condition.KindSequence:
		for _, s := range n.Steps {
			e.fireUnconditionalEmitsIn(s)
		}
	case condition.KindParallel:
		for _, b := range n.Branches {
			e.fireUnconditionalEmitsIn(b)
		}
	}
}

// eval evaluates node idx and performs whatever side effects its kind
// requires (emitting, arming/canceling monitors, advancing a Sequence's
// cursor, arming a Delay), returning its current boolean value. active
// reports whether every enclosing Clause/Sequence/Monitor context that
// contains idx is itself currently true; an Emit, Delay or Monitor node
// only acts when active is true.
func (e *Engine) eval(idx int, active bool) bool {
	n := e.tree.Node(idx)
	switch n.Kind {

	case condition.KindPredicate:
		result := n.Expr.Eval(e.state).Bool()
		if e.signalRelevant(n.Expr) {
			e.emit.Condition(n.Expr.Source(), result)
		}
		return result

	case condition.KindEmit:
		if active {
			if !e.lastActive[idx] {
				e.doEmit(n.TargetSignal, n.ValueExpr.EvalValue(e.state))
			}
			e.lastActive[idx] = true
		} else {
			e.lastActive[idx] = false
		}
		return active

	case condition.KindClause:
		return e.evalClause(n, active)

	case condition.KindMonitor:
		return e.evalMonitor(idx, n, active)

	case condition.KindSequence:
		return e.evalSequence(idx, n, active)

	case condition.KindParallel:
		result := true
		for _, b := range n.Branches {
			if !e.eval(b, active) {
				result = false
			}
		}
		return result

	case condition.KindDelay:
		if active && !e.lastActive[idx] {
			inner := n.Inner
			e.sched.ArmTimer(time.Duration(n.DelayMS)*time.Millisecond, func() {
				e.eval(inner, true)
			})
		}
		e.lastActive[idx] = active
		return active

	case condition.KindUnconditionalEmit:
		if !e.fired[idx] {
			e.fired[idx] = true
			e.doEmit(n.Signal, n.Value)
		}
		return true

	default:
		return false
	}
}

// signalRelevant reports whether expr should log its condition line for the
// signal driving the in-progress handle() pass. currentSignal is empty
// outside of handle() (timer-driven checks), where everything logs as
// before.
func (e *Engine) signalRelevant(expr *expr.Expr) bool {
	if e.currentSignal == "" {
		return true
	}
	for _, sig := range expr.Signals() {
		if sig == e.currentSignal {
			return true
		}
	}
	return false
}

func (e *Engine) evalClause(n *condition.Node, active bool) bool {
	switch n.ClauseKind {
	case condition.ClauseAll:
		result := true
		for _, c := range n.Children {
			if !e.eval(c, active && result) {
				result = false
			}
		}
		return result
	case condition.ClauseAny:
		result := false
		for _, c := range n.Children {
			if e.eval(c, active) {
				result = true
			}
		}
		return result
	case condition.ClauseXor:
		count := 0
		for _, c := range n.Children {
			if e.eval(c, active) {
				count++
			}
		}
		return count == 1
	case condition.ClauseNot:
		return !e.eval(n.Children[0], active)
	default:
		return false
	}
}

// evalMonitor evaluates a Monitor's trigger and drives its armed/canceled
// lifecycle through the MonitorManager: a false-to-true
// trigger edge arms it, a true-to-false edge (or the enclosing context
// going inactive) cancels it, and an already-armed instance is re-offered
// its body on every tick so it can catch a body transition between
// scheduler events.
func (e *Engine) evalMonitor(idx int, n *condition.Node, active bool) bool {
	triggerTrue := e.eval(n.Trigger, active)
	wasActive := e.mgr.Active(idx)

	switch {
	case active && triggerTrue && !wasActive:
		e.mgr.Arm(idx)
	case (!active || !triggerTrue) && wasActive:
		e.mgr.Cancel(idx)
	case wasActive:
		e.mgr.Reevaluate(idx)
	}
	return e.mgr.Active(idx)
}

// emitParentChain logs one "parent condition:" line per ancestor monitor of
// monitorNode, innermost first, right before that monitor's body is
// evaluated: the reader needs the enclosing trigger values that made the
// body's evaluation reachable at all, since the ancestor's own condition
// line isn't re-printed on this pass.
func (e *Engine) emitParentChain(monitorNode int) {
	n := e.tree.Node(monitorNode)
	for _, anc := range n.Ancestors {
		e.emitAncestorLine(anc)
	}
}

func (e *Engine) emitAncestorLine(monitorIdx int) {
	trig := e.tree.Node(e.tree.Node(monitorIdx).Trigger)
	if trig.Kind != condition.KindPredicate {
		return
	}
	signals := trig.Expr.Signals()
	if len(signals) == 0 {
		return
	}
	sig := signals[0]
	e.emit.ParentCondition(sig, e.state.Get(sig).Literal())
}

// evalSequence evaluates the currently gated step and, each time that step
// is satisfied, advances to and evaluates the next one in the same pass:
// earlier steps already having been satisfied, later steps are not yet
// live and their signals' changes are ignored until their turn comes. Each
// later step's referenced signals are reported through IgnoredSequence so
// the trace still records that the change had no effect.
func (e *Engine) evalSequence(idx int, n *condition.Node, active bool) bool {
	cur := e.seqCursor[idx]
	for cur < len(n.Steps) && e.eval(n.Steps[cur], active) {
		cur++
	}
	e.seqCursor[idx] = cur
	if cur >= len(n.Steps) {
		return true
	}
	for _, later := range n.Steps[cur+1:] {
		for _, sig := range e.referencedSignals(later) {
			e.emit.IgnoredSequence(sig)
		}
	}
	return false
}

// referencedSignals returns the signal names a predicate subtree reads,
// used to report which signals a gated Sequence step is ignoring.
func (e *Engine) referencedSignals(idx int) []string {
	n := e.tree.Node(idx)
	switch n.Kind {
	case condition.KindPredicate:
		return n.Expr.Signals()
	case condition.KindClause:
		var out []string
		for _, c := range n.Children {
			out = append(out, e.referencedSignals(c)...)
		}
		return out
	default:
		return nil
	}
}

// StateSnapshot returns a copy of the engine's current signal state, for a
// dashboard's /state endpoint. Safe to call from another goroutine while
// the engine runs: vsmstate.State guards every access with a mutex.
func (e *Engine) StateSnapshot() map[string]vsmvalue.Value {
	return e.state.Snapshot()
}

// doEmit records an emission into state, writes it to the trace, and
// loops it back into the scheduler as a KindEmission event so the rest of
// the tree can react to it within the same fixed-point pass: re-evaluate
// until no emission changes state.
func (e *Engine) doEmit(name string, v vsmvalue.Value) {
	e.emit.Emit(name, e.dict.ID(name), v)
	e.state.Set(name, v)
	e.sched.Enqueue(scheduler.Event{Kind: scheduler.KindEmission, Name: name, RawLexeme: v.QuotedLiteral()})
}
