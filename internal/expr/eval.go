package expr

import "github.com/collabora/vsm/internal/vsmvalue"

// StateReader is the minimal read capability the evaluator needs; satisfied
// by *vsmstate.State without importing it directly (keeps expr free of a
// dependency on the scheduler-owned package).
type StateReader interface {
	Get(name string) vsmvalue.Value
}

// Eval evaluates the compiled expression against st, returning a tri-state
// result. Unset operands and cross-kind comparisons evaluate false, never
// erroring.
func (e *Expr) Eval(st StateReader) vsmvalue.Tri {
	v := evalNode(e.root, st)
	if v.Kind != vsmvalue.KindBool {
		return vsmvalue.TriFalse
	}
	return vsmvalue.TriFromBool(v.Bool)
}

// EvalValue evaluates the expression and returns its raw Value, used by
// Emit nodes whose value_expr may be arithmetic or a plain literal rather
// than boolean).
func (e *Expr) EvalValue(st StateReader) vsmvalue.Value {
	return evalNode(e.root, st)
}

func evalNode(n *node, st StateReader) vsmvalue.Value {
	switch n.op {
	case "lit":
		v, _ := vsmvalue.ParseLexeme(n.lit)
		return v
	case "ident":
		return st.Get(n.ident)
	case "neg":
		inner := evalNode(n.children[0], st)
		return vsmvalue.Arith("-", vsmvalue.IntValue(0), inner)
	case "not":
		inner := evalNode(n.children[0], st)
		return vsmvalue.BoolValue(!toBool(inner))
	case "and":
		l := toBool(evalNode(n.children[0], st))
		r := toBool(evalNode(n.children[1], st))
		return vsmvalue.BoolValue(l && r)
	case "or":
		l := toBool(evalNode(n.children[0], st))
		r := toBool(evalNode(n.children[1], st))
		return vsmvalue.BoolValue(l || r)
	case "^^":
		l := toBool(evalNode(n.children[0], st))
		r := toBool(evalNode(n.children[1], st))
		return vsmvalue.BoolValue(l != r)
	case "==":
		l := evalNode(n.children[0], st)
		r := evalNode(n.children[1], st)
		return vsmvalue.BoolValue(l.Equal(r))
	case "!=":
		l := evalNode(n.children[0], st)
		r := evalNode(n.children[1], st)
		if l.IsUnset() || r.IsUnset() {
			return vsmvalue.BoolValue(false)
		}
		return vsmvalue.BoolValue(!l.Equal(r))
	case "<", "<=", ">", ">=":
		l := evalNode(n.children[0], st)
		r := evalNode(n.children[1], st)
		cmp, ok := vsmvalue.Compare(l, r)
		if !ok {
			return vsmvalue.BoolValue(false)
		}
		switch n.op {
		case "<":
			return vsmvalue.BoolValue(cmp < 0)
		case "<=":
			return vsmvalue.BoolValue(cmp <= 0)
		case ">":
			return vsmvalue.BoolValue(cmp > 0)
		default:
			return vsmvalue.BoolValue(cmp >= 0)
		}
	case "+", "-", "*", "/":
		l := evalNode(n.children[0], st)
		r := evalNode(n.children[1], st)
		return vsmvalue.Arith(n.op, l, r)
	default:
		return vsmvalue.Unset
	}
}

// toBool treats a non-boolean (including Unset) value as false: any
// predicate containing an unset operand evaluates false.
func toBool(v vsmvalue.Value) bool {
	return v.Kind == vsmvalue.KindBool && v.Bool
}
