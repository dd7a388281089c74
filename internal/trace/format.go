// Package trace implements the canonical, bit-exact trace line formats and
// the Emitter that produces them in deterministic order.
package trace

import (
	"strconv"
	"strings"

	"github.com/collabora/vsm/internal/vsmvalue"
)

// IngressLine formats an inbound (or replayed) signal exactly as received:
// "<name>,<id>,<value-literal>", preserving the original lexeme so that
// quoted strings keep their quotes.
func IngressLine(name string, id uint32, rawLexeme string) string {
	return name + "," + strconv.FormatUint(uint64(id), 10) + "," + rawLexeme
}

// EmittedLine formats a derived or unconditional emission for both the log
// file and the EgressSink: "name,id,'value'".
func EmittedLine(name string, id uint32, v vsmvalue.Value) string {
	return name + "," + strconv.FormatUint(uint64(id), 10) + "," + v.QuotedLiteral()
}

// StateDump formats the full state dump block: "State = {" / one
// "name = value" per line in lexicographic name order (booleans
// capitalized, strings unquoted) / closing "}".
func StateDump(names []string, get func(string) vsmvalue.Value) string {
	var b strings.Builder
	b.WriteString("State = {\n")
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(" = ")
		b.WriteString(get(name).Literal())
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// ConditionLine formats a predicate evaluation: "condition: (<expr-source>)
// => <True|False>".
func ConditionLine(exprSource string, result bool) string {
	return "condition: (" + exprSource + ") => " + boolWord(result)
}

// ParentConditionLine formats one ancestor line inside a monitor's trace,
// printed once per ancestor before the leaf's evaluation line, innermost
// first.
func ParentConditionLine(lhs, rhs string) string {
	if rhs == "" {
		rhs = "(unset)"
	}
	return "parent condition: " + lhs + " == " + rhs
}

// NotMetLine formats a monitor deadline-miss line: "condition not met by
// '<start|stop>' time of <N>ms".
func NotMetLine(which string, ms int) string {
	return "condition not met by '" + which + "' time of " + strconv.Itoa(ms) + "ms"
}

// IgnoredSequenceLine formats the Sequence-gating line logged when a
// signal change cannot move a not-yet-live step forward.
func IgnoredSequenceLine(signal string) string {
	return "changed value for signal '" + signal + "' ignored because prior conditions in its sequence block have not been met"
}

// InvalidMessageLine formats the malformed-ingress line logged when an
// inbound message fails to parse.
const InvalidMessageLine = "skipping invalid message"

func boolWord(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
