package condition

import (
	"testing"

	"github.com/collabora/vsm/internal/expr"
)

func TestBuilder_IndicesAreStable(t *testing.T) {
	b := NewBuilder()
	e, err := expr.Compile(`a == True`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p0 := b.AddPredicate(e)
	p1 := b.AddPredicate(e)
	clause := b.AddClause(ClauseAll, p0, p1)

	tree := b.Build([]int{clause})

	if tree.Node(p0).ID != p0 {
		t.Errorf("node ID mismatch: Node(%d).ID = %d", p0, tree.Node(p0).ID)
	}
	if tree.Node(clause).Kind != KindClause {
		t.Errorf("clause Kind = %v, want KindClause", tree.Node(clause).Kind)
	}
	if len(tree.Node(clause).Children) != 2 {
		t.Fatalf("clause has %d children, want 2", len(tree.Node(clause).Children))
	}
}

func TestBuilder_MonitorAncestors(t *testing.T) {
	b := NewBuilder()
	e, _ := expr.Compile(`a == True`)
	trigger := b.AddPredicate(e)
	body := b.AddPredicate(e)
	outer := b.AddMonitor(trigger, 0, NoLimit, body, NoParent, nil)
	inner := b.AddMonitor(trigger, 1000, 2000, body, outer, []int{outer})

	tree := b.Build([]int{outer})
	if tree.Node(inner).Ancestors[0] != outer {
		t.Errorf("inner monitor ancestors = %v, want [%d]", tree.Node(inner).Ancestors, outer)
	}
}
