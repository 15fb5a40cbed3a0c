package condition

import (
	"fmt"

	"github.com/roach88/qfilter/internal/value"
)

// ValidationResult contains the structural analysis of a condition tree.
type ValidationResult struct {
	// Valid indicates the tree only uses shapes every interpreter accepts.
	Valid bool

	// Warnings lists every structural problem found.
	// Empty when Valid is true.
	Warnings []string
}

// Validate checks that a condition tree is well-formed:
//  1. Every Field has a non-empty path and a known operator
//  2. In/NotIn carry an Array operand; no other operator does
//  3. Regex carries a String pattern
//  4. Every Compound is AND or OR
//
// Validate is a pure function with no side effects.
func Validate(c Condition) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validate(c, "$")

	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validate(c Condition, at string) {
	switch node := c.(type) {
	case nil:
		v.addWarning("%s: nil condition", at)
	case Field:
		v.validateField(node, at)
	case *Field:
		v.validateField(*node, at)
	case Compound:
		v.validateCompound(node, at)
	case *Compound:
		v.validateCompound(*node, at)
	default:
		v.addWarning("%s: unknown condition type %T", at, c)
	}
}

func (v *validator) validateField(f Field, at string) {
	if f.Field == "" {
		v.addWarning("%s: field path is empty", at)
	}
	if !f.Operator.Valid() {
		v.addWarning("%s: unknown operator %q on field %q", at, f.Operator, f.Field)
		return
	}
	if f.Value == nil {
		v.addWarning("%s: field %q has no value", at, f.Field)
		return
	}

	_, isArray := f.Value.(value.Array)
	switch f.Operator {
	case In, NotIn:
		if !isArray {
			v.addWarning("%s: operator %s on %q requires a list, got %T", at, f.Operator, f.Field, f.Value)
		}
	case Regex:
		if _, ok := f.Value.(value.String); !ok {
			v.addWarning("%s: regex on %q requires a string pattern, got %T", at, f.Field, f.Value)
		}
	default:
		if isArray {
			v.addWarning("%s: operator %s on %q does not accept a list", at, f.Operator, f.Field)
		}
	}
}

func (v *validator) validateCompound(c Compound, at string) {
	if c.Operator != And && c.Operator != Or {
		v.addWarning("%s: unknown logic %q", at, c.Operator)
	}
	for i, child := range c.Children {
		v.validate(child, fmt.Sprintf("%s.%s[%d]", at, c.Operator, i))
	}
}
