package condition

import (
	"encoding/json"

	"github.com/roach88/qfilter/internal/value"
)

// Condition represents one node of a filter predicate tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend interpreters.
//
// Condition types:
//   - Field: a single comparison of a field path against an operand
//   - Compound: an AND/OR combination of child conditions
//
// Nodes carry no behavior beyond structural access. SQL generation,
// in-memory evaluation and any other traversal are performed by
// interpreters keyed on node kind and operator.
type Condition interface {
	conditionNode() // Marker method - seals interface to this package
}

// Operator is the comparison performed by a Field condition.
type Operator string

const (
	Equal            Operator = "eq"
	NotEqual         Operator = "ne"
	Regex            Operator = "regex"
	LessThan         Operator = "lt"
	LessThanEqual    Operator = "lte"
	GreaterThan      Operator = "gt"
	GreaterThanEqual Operator = "gte"
	In               Operator = "in"
	NotIn            Operator = "nin"
)

// Operators lists every comparison operator in grammar precedence order.
var Operators = []Operator{Equal, NotEqual, Regex, LessThan, LessThanEqual, GreaterThan, GreaterThanEqual, In, NotIn}

// Valid reports whether op is one of the known comparison operators.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// Negate returns the negated counterpart of op.
//
// Negation is only defined for equality and membership. Ordering operators
// and regex (whose negation is baked into the pattern) are returned as-is.
func (op Operator) Negate() Operator {
	switch op {
	case Equal:
		return NotEqual
	case NotEqual:
		return Equal
	case In:
		return NotIn
	case NotIn:
		return In
	default:
		return op
	}
}

// Logic is the boolean connective of a Compound condition.
type Logic string

const (
	And Logic = "and"
	Or  Logic = "or"
)

// Field represents a single predicate on a field path.
//
// Semantics:
//
//	<field> <operator> <value>
//
// Field is a dot-separated path; relation-qualified predicates keep the
// relation segments (e.g. "profile.age"). Value is an Array for In/NotIn
// and a String holding the pattern for Regex. Regex patterns are matched
// case-insensitively by interpreters.
//
// Example:
//
//	Field{Operator: LessThan, Field: "age", Value: value.Int(18)}
//
// Translates to SQL:
//
//	age < ?
type Field struct {
	Operator Operator
	Field    string
	Value    value.Value
}

func (Field) conditionNode() {}

// Compound represents a conjunction or disjunction of child conditions.
//
// Semantics:
//
//	<child1> AND|OR <child2> AND|OR ... <childN>
//
// An empty AND is always true (no filter); an empty OR is always false.
// Children are owned exclusively by their parent, forming a tree.
type Compound struct {
	Operator Logic
	Children []Condition
}

func (Compound) conditionNode() {}

// NewField creates a Field condition.
func NewField(op Operator, field string, v value.Value) Field {
	return Field{Operator: op, Field: field, Value: v}
}

// NewAnd creates an AND compound over children.
func NewAnd(children ...Condition) Compound {
	if children == nil {
		children = []Condition{}
	}
	return Compound{Operator: And, Children: children}
}

// NewOr creates an OR compound over children.
func NewOr(children ...Condition) Compound {
	if children == nil {
		children = []Condition{}
	}
	return Compound{Operator: Or, Children: children}
}

// Wrap combines conditions under logic, degenerating to the single
// condition when there is exactly one.
func Wrap(logic Logic, children []Condition) Condition {
	if len(children) == 1 {
		return children[0]
	}
	return Compound{Operator: logic, Children: append([]Condition{}, children...)}
}

// MarshalJSON implements json.Marshaler for Field using canonical encoding.
func (f Field) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(f)
}

// MarshalJSON implements json.Marshaler for Compound using canonical encoding.
func (c Compound) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(c)
}

var (
	_ json.Marshaler = Field{}
	_ json.Marshaler = Compound{}
)
