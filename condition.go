// Query conditions evaluated by StorageEngine and dispatched by the
// B+-tree's search_condition (spec §3 "Index key", §4.3.1).
package pagedb

import "fmt"

// Operation is a comparison operator usable in a Condition.
type Operation int

const (
	OpEQ Operation = iota
	OpNEQ
	OpGT
	OpGTE
	OpLT
	OpLTE
)

func (op Operation) String() string {
	switch op {
	case OpEQ:
		return "="
	case OpNEQ:
		return "<>"
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	default:
		return "?"
	}
}

// Condition is a single (column, operator, operand) predicate. The
// source permits any operand type without validating it against the
// column's declared type (spec §9 Open Question, carried unchanged);
// for incomparable operand/value pairs applyOp returns true under OpNEQ
// and false under every other operator.
type Condition struct {
	Column    string
	Operation Operation
	Operand   any
}

// evaluate applies the condition to a single value using applyOp.
func (c Condition) evaluate(value any) bool {
	return applyOp(c.Operation, value, c.Operand)
}

// applyOp implements the six comparison operators over the dynamic
// value types the codec produces (int, float64, string).
func applyOp(op Operation, a, b any) bool {
	cmp, ok := compareValues(a, b)
	if !ok {
		// Operand type mismatch: spec §9 leaves validation unspecified;
		// the values are not equal, so only NEQ matches, and nothing
		// panics.
		return op == OpNEQ && !valuesEqual(a, b)
	}
	switch op {
	case OpEQ:
		return cmp == 0
	case OpNEQ:
		return cmp != 0
	case OpGT:
		return cmp > 0
	case OpGTE:
		return cmp >= 0
	case OpLT:
		return cmp < 0
	case OpLTE:
		return cmp <= 0
	default:
		return false
	}
}

// compareValues returns (-1|0|1, true) if a and b are ordinally
// comparable, else (0, false).
func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case int:
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return compareFloat(float64(av), bf), true
	case float64:
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return compareFloat(av, bf), true
	case string:
		bs, ok := b.(string)
		if !ok {
			bs = fmt.Sprint(b)
		}
		switch {
		case av < bs:
			return -1, true
		case av > bs:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func valuesEqual(a, b any) bool {
	cmp, ok := compareValues(a, b)
	return ok && cmp == 0
}
