package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/qfilter/internal/filter"
	"github.com/roach88/qfilter/internal/schema"
)

// Validation error codes (E100-E199)
const (
	ErrAllowedPathInvalid     = "E101" // allow-list entry is not a field path
	ErrAllowedRelationUnknown = "E102" // allow-list entry names a relation with no schema
	ErrDefaultInvalid         = "E103" // default key or value does not parse
	ErrRelationUnresolved     = "E104" // relation alias targets an unknown schema
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Schema  string `json:"schema"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Schema, e.Field, e.Message)
}

// Validate checks every schema of a registry.
// Returns all errors found (does not fail-fast), ordered by schema name.
func Validate(reg *schema.Registry) []ValidationError {
	var errs []ValidationError
	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		errs = append(errs, validateSchema(reg, s)...)
	}
	return errs
}

func validateSchema(reg *schema.Registry, s schema.Schema) []ValidationError {
	var errs []ValidationError

	for _, rel := range s.Relations() {
		// E104: relation target must be registered
		if _, ok := reg.Get(rel[1]); !ok {
			errs = append(errs, ValidationError{
				Schema:  s.Name(),
				Field:   "relations." + rel[0],
				Message: fmt.Sprintf("targets unknown schema %q", rel[1]),
				Code:    ErrRelationUnresolved,
			})
		}
	}

	allowed, _ := s.Allowed()
	for i, path := range allowed {
		key, err := filter.ParseKey(path)
		if err != nil || key.Group != "" {
			// E101: allow-list entries are plain field paths
			errs = append(errs, ValidationError{
				Schema:  s.Name(),
				Field:   fmt.Sprintf("allowed[%d]", i),
				Message: fmt.Sprintf("%q is not a field path", path),
				Code:    ErrAllowedPathInvalid,
			})
			continue
		}

		// E102: qualified entries must start with a resolvable relation
		if key.Path != "" {
			rel, _, _ := strings.Cut(key.Path, ".")
			if _, ok := reg.Get(s.RelationTarget(rel)); !ok {
				errs = append(errs, ValidationError{
					Schema:  s.Name(),
					Field:   fmt.Sprintf("allowed[%d]", i),
					Message: fmt.Sprintf("%q refers to relation %q with no registered schema", path, rel),
					Code:    ErrAllowedRelationUnknown,
				})
			}
		}
	}

	// E103: defaults go through the same grammar as input
	if _, err := filter.Defaults(s); err != nil {
		errs = append(errs, ValidationError{
			Schema:  s.Name(),
			Field:   "default",
			Message: err.Error(),
			Code:    ErrDefaultInvalid,
		})
	}

	return errs
}
