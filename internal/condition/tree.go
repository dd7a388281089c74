// Package condition implements the compiled condition-tree data model: an
// arena of nodes addressed by stable integer index, so that cyclic
// references (a Monitor's parent predicate, a nested Monitor's ancestor
// chain) are plain ints rather than owning pointers.
package condition

import (
	"github.com/collabora/vsm/internal/expr"
	"github.com/collabora/vsm/internal/vsmvalue"
)

// Kind tags the variant a Node holds.
type Kind int

const (
	KindPredicate Kind = iota
	KindEmit
	KindClause
	KindMonitor
	KindSequence
	KindParallel
	KindDelay
	KindUnconditionalEmit
)

// ClauseKind selects the boolean composition a Clause node performs.
type ClauseKind int

const (
	ClauseAll ClauseKind = iota
	ClauseAny
	ClauseXor
	ClauseNot
)

// NoLimit marks a Monitor's stop_ms as having no deadline.
const NoLimit = -1

// NoParent marks a Monitor with no enclosing ancestor.
const NoParent = -1

// Node is one arena entry. Only the fields relevant to Kind are meaningful;
// a flat tagged-variant struct keeps the arena a single contiguous slice.
type Node struct {
	Kind Kind
	ID   int // this node's own index, set by the Tree that owns it

	// Predicate
	Expr *expr.Expr

	// Emit
	TargetSignal string
	ValueExpr    *expr.Expr

	// Clause
	ClauseKind ClauseKind
	Children   []int

	// Monitor
	Trigger   int   // index of the trigger ConditionNode
	StartMS   int   // arm delay before checking the body; 0 = immediate
	StopMS    int   // deadline from trigger edge; NoLimit = unbounded
	Body      int   // index of the body ConditionNode
	Parent    int   // index of the enclosing Monitor, or NoParent
	Ancestors []int // enclosing Monitor indices, innermost first, for trace

	// Sequence
	Steps []int // step ConditionNode indices, in declared order

	// Parallel
	Branches []int // branch ConditionNode indices, in declared (activation) order

	// Delay
	DelayMS int
	Inner   int // index of the inner ConditionNode

	// UnconditionalEmit
	Signal string
	Value  vsmvalue.Value
}

// Tree is the immutable-after-compile arena plus the list of top-level
// (root) node indices a rule document declares.
type Tree struct {
	Nodes []Node
	Roots []int
}

// Builder accumulates nodes before a Tree is frozen; the Add* helpers keep
// each node's ID in sync with its own slice position.
type Builder struct {
	nodes []Node
}

// NewBuilder starts an empty condition-tree arena.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) add(n Node) int {
	n.ID = len(b.nodes)
	b.nodes = append(b.nodes, n)
	return n.ID
}

// AddPredicate appends a Predicate leaf and returns its index.
func (b *Builder) AddPredicate(e *expr.Expr) int {
	return b.add(Node{Kind: KindPredicate, Expr: e})
}

// AddEmit appends an Emit node and returns its index.
func (b *Builder) AddEmit(target string, valueExpr *expr.Expr) int {
	return b.add(Node{Kind: KindEmit, TargetSignal: target, ValueExpr: valueExpr})
}

// AddClause appends a boolean Clause composition and returns its index.
func (b *Builder) AddClause(kind ClauseKind, children ...int) int {
	return b.add(Node{Kind: KindClause, ClauseKind: kind, Children: children})
}

// AddMonitor appends a Monitor node and returns its index. ancestors must be
// given innermost-first.
func (b *Builder) AddMonitor(trigger, startMS, stopMS, body, parent int, ancestors []int) int {
	return b.add(Node{
		Kind: KindMonitor, Trigger: trigger, StartMS: startMS, StopMS: stopMS,
		Body: body, Parent: parent, Ancestors: ancestors,
	})
}

// ReserveMonitor appends a placeholder Monitor node and returns its index,
// for callers that must know a Monitor's own index before compiling its
// body (a nested Monitor's Parent/Ancestors reference the enclosing
// Monitor's index). Pair with FillMonitor once the body is compiled.
func (b *Builder) ReserveMonitor() int {
	return b.add(Node{Kind: KindMonitor})
}

// FillMonitor completes a Monitor node previously created by ReserveMonitor.
func (b *Builder) FillMonitor(idx, trigger, startMS, stopMS, body, parent int, ancestors []int) {
	n := &b.nodes[idx]
	n.Trigger, n.StartMS, n.StopMS, n.Body, n.Parent, n.Ancestors = trigger, startMS, stopMS, body, parent, ancestors
}

// AddSequence appends a Sequence node and returns its index.
func (b *Builder) AddSequence(steps ...int) int {
	return b.add(Node{Kind: KindSequence, Steps: steps})
}

// AddParallel appends a Parallel node and returns its index.
func (b *Builder) AddParallel(branches ...int) int {
	return b.add(Node{Kind: KindParallel, Branches: branches})
}

// AddDelay appends a Delay node and returns its index.
func (b *Builder) AddDelay(ms int, inner int) int {
	return b.add(Node{Kind: KindDelay, DelayMS: ms, Inner: inner})
}

// AddUnconditionalEmit appends a one-shot emission node and returns its index.
func (b *Builder) AddUnconditionalEmit(signal string, v vsmvalue.Value) int {
	return b.add(Node{Kind: KindUnconditionalEmit, Signal: signal, Value: v})
}

// Build freezes the arena into a Tree with the given root indices.
func (b *Builder) Build(roots []int) *Tree {
	return &Tree{Nodes: b.nodes, Roots: roots}
}

// Node returns the node at index i.
func (t *Tree) Node(i int) *Node { return &t.Nodes[i] }
