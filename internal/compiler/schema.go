package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qfilter/internal/schema"
	"github.com/roach88/qfilter/internal/value"
)

// CompileSchema parses a CUE value into a schema.Schema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the schema struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`schema: user: { allowed: ["id", "name"] }`)
//	s, err := CompileSchema(v.LookupPath(cue.ParsePath("schema.user")))
func CompileSchema(v cue.Value) (schema.Schema, error) {
	if err := v.Err(); err != nil {
		return schema.Schema{}, formatCUEError(err)
	}

	// Schema name comes from the struct label (the path selector)
	var name string
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}
	if !schema.ValidName(name) {
		return schema.Schema{}, &CompileError{
			Field:   "schema",
			Message: fmt.Sprintf("invalid schema name %q", name),
			Pos:     v.Pos(),
		}
	}

	var opts []schema.Option

	// allowed (optional); an empty list closes the schema
	if allowedVal := v.LookupPath(cue.ParsePath("allowed")); allowedVal.Exists() {
		paths, err := parseStrings(allowedVal, "allowed")
		if err != nil {
			return schema.Schema{}, err
		}
		opts = append(opts, schema.WithAllowed(paths...))
	}

	if defaultVal := v.LookupPath(cue.ParsePath("default")); defaultVal.Exists() {
		defaults, err := parseDefaults(defaultVal)
		if err != nil {
			return schema.Schema{}, err
		}
		opts = append(opts, schema.WithDefaults(defaults))
	}

	if byElemVal := v.LookupPath(cue.ParsePath("defaultByElement")); byElemVal.Exists() {
		byElem, err := byElemVal.Bool()
		if err != nil {
			return schema.Schema{}, formatCUEError(err)
		}
		if byElem {
			opts = append(opts, schema.WithDefaultByElement())
		}
	}

	if mappingVal := v.LookupPath(cue.ParsePath("mapping")); mappingVal.Exists() {
		mapping, err := parseNames(mappingVal, "mapping")
		if err != nil {
			return schema.Schema{}, err
		}
		opts = append(opts, schema.WithMapping(mapping))
	}

	if relationsVal := v.LookupPath(cue.ParsePath("relations")); relationsVal.Exists() {
		relations, err := parseNames(relationsVal, "relations")
		if err != nil {
			return schema.Schema{}, err
		}
		for rel, target := range relations {
			opts = append(opts, schema.WithRelation(rel, target))
		}
	}

	if strictVal := v.LookupPath(cue.ParsePath("strict")); strictVal.Exists() {
		strict, err := strictVal.Bool()
		if err != nil {
			return schema.Schema{}, formatCUEError(err)
		}
		if strict {
			opts = append(opts, schema.WithStrict())
		}
	}

	if validateVal := v.LookupPath(cue.ParsePath("validate")); validateVal.Exists() {
		enums, err := parseEnumerations(validateVal)
		if err != nil {
			return schema.Schema{}, err
		}
		opts = append(opts, schema.WithValidator(enumValidator(enums)))
	}

	return schema.New(name, opts...), nil
}

// parseStrings reads a list of strings.
func parseStrings(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}

	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// parseNames reads a struct of name → name pairs. Both sides must be bare
// field names.
func parseNames(v cue.Value, field string) (map[string]string, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]string)
	for iter.Next() {
		from := iter.Label()
		to, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for _, name := range []string{from, to} {
			if !schema.ValidName(name) {
				return nil, &CompileError{
					Field:   field,
					Message: fmt.Sprintf("invalid name %q", name),
					Pos:     iter.Value().Pos(),
				}
			}
		}
		out[from] = to
	}
	return out, nil
}

// parseDefaults reads the default predicates. Values stay in their raw
// form and go through the value grammar at parse time.
func parseDefaults(v cue.Value) (map[string]any, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]any)
	for iter.Next() {
		raw, err := toGo(iter.Value())
		if err != nil {
			return nil, err
		}
		out[iter.Label()] = raw
	}
	return out, nil
}

// parseEnumerations reads validate: {path: [...values]}.
func parseEnumerations(v cue.Value) (map[string][]value.Value, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string][]value.Value)
	for iter.Next() {
		path := iter.Label()
		raw, err := toGo(iter.Value())
		if err != nil {
			return nil, err
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, &CompileError{
				Field:   "validate." + path,
				Message: "must be a list of allowed values",
				Pos:     iter.Value().Pos(),
			}
		}
		for _, elem := range list {
			val, err := value.FromAny(elem)
			if err != nil {
				return nil, &CompileError{Field: "validate." + path, Message: err.Error(), Pos: iter.Value().Pos()}
			}
			out[path] = append(out[path], val)
		}
	}
	return out, nil
}

// enumValidator accepts a value when its path has no enumeration or the
// value equals one of the enumerated values.
func enumValidator(enums map[string][]value.Value) schema.Validator {
	return func(path string, v value.Value) bool {
		allowed, ok := enums[path]
		if !ok {
			return true
		}
		for _, candidate := range allowed {
			if value.Equal(candidate, v) {
				return true
			}
		}
		return false
	}
}

// toGo converts a concrete CUE value to the plain Go types accepted by
// value.FromAny.
func toGo(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return i, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for iter.Next() {
			elem, err := toGo(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
