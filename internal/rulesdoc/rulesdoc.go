// Package rulesdoc parses the YAML rule document that declares a run's
// condition tree and compiles it into a condition.Tree, resolving every
// referenced signal name against a signaldict.Dictionary and defaulting a
// Monitor's start_ms/stop_ms.
package rulesdoc

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/collabora/vsm/internal/condition"
	"github.com/collabora/vsm/internal/expr"
	"github.com/collabora/vsm/internal/signaldict"
	"github.com/collabora/vsm/internal/vsmvalue"
)

// document is the top-level YAML shape: a flat list of top-level condition
// rules, each compiled into its own root of the condition tree.
type document struct {
	Rules []ruleNode `yaml:"rules"`
}

// ruleNode is the recursive YAML condition-node DTO. Exactly one field
// should be set per occurrence; Compile rejects a node with none or more
// than one populated.
type ruleNode struct {
	Predicate         *string            `yaml:"predicate,omitempty"`
	Emit              *emitSpec          `yaml:"emit,omitempty"`
	All               []ruleNode         `yaml:"all,omitempty"`
	Any               []ruleNode         `yaml:"any,omitempty"`
	Xor               []ruleNode         `yaml:"xor,omitempty"`
	Not               *ruleNode          `yaml:"not,omitempty"`
	Monitor           *monitorSpec       `yaml:"monitor,omitempty"`
	Sequence          []ruleNode         `yaml:"sequence,omitempty"`
	Parallel          []ruleNode         `yaml:"parallel,omitempty"`
	Delay             *delaySpec         `yaml:"delay,omitempty"`
	UnconditionalEmit *unconditionalSpec `yaml:"unconditional_emit,omitempty"`
}

type emitSpec struct {
	Target string `yaml:"target"`
	Value  string `yaml:"value"`
}

// monitorSpec mirrors condition.Node's Monitor fields; StopMS is a pointer
// so an absent key defaults to condition.NoLimit rather than 0: an omitted
// stop_ms means unbounded.
type monitorSpec struct {
	Trigger ruleNode `yaml:"trigger"`
	StartMS int      `yaml:"start_ms"`
	StopMS  *int     `yaml:"stop_ms,omitempty"`
	Body    ruleNode `yaml:"body"`
}

type delaySpec struct {
	MS    int      `yaml:"ms"`
	Inner ruleNode `yaml:"inner"`
}

type unconditionalSpec struct {
	Signal string `yaml:"signal"`
	Value  string `yaml:"value"`
}

// Compile parses data as a rule document and returns its condition.Tree,
// using dict to resolve signal references. dict may be nil, in which case
// every signal name is accepted as unknown and its id defaults to
// dictionary lookup at runtime.
func Compile(data []byte, dict *signaldict.Dictionary) (*condition.Tree, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rulesdoc: parse: %w", err)
	}
	if dict == nil {
		dict = signaldict.New()
	}

	c := &compiler{b: condition.NewBuilder(), dict: dict}
	roots := make([]int, 0, len(doc.Rules))
	for i, r := range doc.Rules {
		idx, err := c.compile(r, condition.NoParent, nil)
		if err != nil {
			return nil, fmt.Errorf("rulesdoc: rules[%d]: %w", i, err)
		}
		roots = append(roots, idx)
	}
	return c.b.Build(roots), nil
}

type compiler struct {
	b    *condition.Builder
	dict *signaldict.Dictionary
}

// compile compiles one ruleNode, returning its arena index. parent and
// ancestors describe the enclosing Monitor (if any), threaded through so a
// nested Monitor can record its Parent and innermost-first Ancestors chain.
func (c *compiler) compile(n ruleNode, parent int, ancestors []int) (int, error) {
	set := 0
	for _, present := range []bool{
		n.Predicate != nil, n.Emit != nil, n.All != nil, n.Any != nil, n.Xor != nil, n.Not != nil,
		n.Monitor != nil, n.Sequence != nil, n.Parallel != nil, n.Delay != nil, n.UnconditionalEmit != nil,
	} {
		if present {
			set++
		}
	}
	if set > 1 {
		return 0, fmt.Errorf("condition node has more than one kind set")
	}
	switch {
	case n.Predicate != nil:
		e, err := expr.Compile(*n.Predicate)
		if err != nil {
			return 0, fmt.Errorf("predicate %q: %w", *n.Predicate, err)
		}
		return c.b.AddPredicate(e), nil

	case n.Emit != nil:
		if n.Emit.Target == "" {
			return 0, fmt.Errorf("emit: target signal name is required")
		}
		ve, err := expr.Compile(n.Emit.Value)
		if err != nil {
			return 0, fmt.Errorf("emit %q value %q: %w", n.Emit.Target, n.Emit.Value, err)
		}
		return c.b.AddEmit(n.Emit.Target, ve), nil

	case n.All != nil:
		children, err := c.compileAll(n.All, parent, ancestors)
		if err != nil {
			return 0, err
		}
		return c.b.AddClause(condition.ClauseAll, children...), nil

	case n.Any != nil:
		children, err := c.compileAll(n.Any, parent, ancestors)
		if err != nil {
			return 0, err
		}
		return c.b.AddClause(condition.ClauseAny, children...), nil

	case n.Xor != nil:
		children, err := c.compileAll(n.Xor, parent, ancestors)
		if err != nil {
			return 0, err
		}
		return c.b.AddClause(condition.ClauseXor, children...), nil

	case n.Not != nil:
		child, err := c.compile(*n.Not, parent, ancestors)
		if err != nil {
			return 0, err
		}
		return c.b.AddClause(condition.ClauseNot, child), nil

	case n.Monitor != nil:
		return c.compileMonitor(*n.Monitor, parent, ancestors)

	case n.Sequence != nil:
		steps, err := c.compileAll(n.Sequence, parent, ancestors)
		if err != nil {
			return 0, err
		}
		return c.b.AddSequence(steps...), nil

	case n.Parallel != nil:
		branches, err := c.compileAll(n.Parallel, parent, ancestors)
		if err != nil {
			return 0, err
		}
		return c.b.AddParallel(branches...), nil

	case n.Delay != nil:
		inner, err := c.compile(n.Delay.Inner, parent, ancestors)
		if err != nil {
			return 0, err
		}
		return c.b.AddDelay(n.Delay.MS, inner), nil

	case n.UnconditionalEmit != nil:
		if n.UnconditionalEmit.Signal == "" {
			return 0, fmt.Errorf("unconditional_emit: signal name is required")
		}
		v, _ := vsmvalue.ParseLexeme(n.UnconditionalEmit.Value)
		return c.b.AddUnconditionalEmit(n.UnconditionalEmit.Signal, v), nil

	default:
		return 0, fmt.Errorf("condition node has no recognized kind set")
	}
}

func (c *compiler) compileAll(nodes []ruleNode, parent int, ancestors []int) ([]int, error) {
	idxs := make([]int, 0, len(nodes))
	for i, n := range nodes {
		idx, err := c.compile(n, parent, ancestors)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		idxs = append(idxs, idx)
	}
	return idxs, nil
}

// compileMonitor reserves the Monitor node's own index before compiling its
// body, so a nested Monitor inside that body can record this Monitor as its
// Parent and prepend it to its own Ancestors chain, innermost first.
func (c *compiler) compileMonitor(spec monitorSpec, parent int, ancestors []int) (int, error) {
	self := c.b.ReserveMonitor()

	trigger, err := c.compile(spec.Trigger, parent, ancestors)
	if err != nil {
		return 0, fmt.Errorf("monitor.trigger: %w", err)
	}

	innerAncestors := append([]int{self}, ancestors...)
	body, err := c.compile(spec.Body, self, innerAncestors)
	if err != nil {
		return 0, fmt.Errorf("monitor.body: %w", err)
	}

	stopMS := condition.NoLimit
	if spec.StopMS != nil {
		stopMS = *spec.StopMS
	}
	c.b.FillMonitor(self, trigger, spec.StartMS, stopMS, body, parent, ancestors)
	return self, nil
}
