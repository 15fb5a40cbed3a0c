package schema

import (
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/qfilter/internal/value"
)

// namePattern is the syntactic validity rule for bare field names, used
// only when no allow-list is configured.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name is a syntactically valid bare field name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Validator rejects otherwise-valid operands. path is the schema-local
// field path (after mapping); v is a single scalar (array operands are
// validated element by element).
type Validator func(path string, v value.Value) bool

// Schema declares the filterable surface of one entity.
//
// A Schema is immutable once built; copies share the underlying maps,
// which are never written after construction.
type Schema struct {
	name string

	// allowed == nil means "undefined": any syntactically valid,
	// non-relation-qualified name passes (unless defaults are defined).
	// A non-nil empty set closes the schema.
	allowed      map[string]struct{}
	allowedOrder []string

	// defaults == nil means "undefined".
	defaults         map[string]any
	defaultByElement bool

	mapping   map[string]string
	relations map[string]string
	validate  Validator
	strict    bool
}

// Option configures a Schema.
type Option func(*Schema)

// New creates a Schema named name.
func New(name string, opts ...Option) Schema {
	s := Schema{name: name}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithAllowed sets the allow-list. Calling it with no paths closes the
// schema: every predicate is rejected and only defaults are emitted.
func WithAllowed(paths ...string) Option {
	return func(s *Schema) {
		s.allowed = make(map[string]struct{}, len(paths))
		s.allowedOrder = make([]string, 0, len(paths))
		for _, p := range paths {
			if _, dup := s.allowed[p]; dup {
				continue
			}
			s.allowed[p] = struct{}{}
			s.allowedOrder = append(s.allowedOrder, p)
		}
	}
}

// WithDefaults sets default predicates, applied when no matching input is
// present. Values use the textual value grammar ("<18", "!~abc", ...).
func WithDefaults(defaults map[string]any) Option {
	return func(s *Schema) {
		s.defaults = make(map[string]any, len(defaults))
		for k, v := range defaults {
			s.defaults[k] = v
		}
	}
}

// WithDefaultByElement emits unmatched default paths alongside matched
// input instead of suppressing all defaults once any input matches.
func WithDefaultByElement() Option {
	return func(s *Schema) {
		s.defaultByElement = true
	}
}

// WithMapping maps external leaf names to canonical field names.
func WithMapping(mapping map[string]string) Option {
	return func(s *Schema) {
		if s.mapping == nil {
			s.mapping = make(map[string]string, len(mapping))
		}
		for k, v := range mapping {
			s.mapping[k] = v
		}
	}
}

// WithRelation aliases a relation name to the name of the schema that
// describes its target entity.
func WithRelation(relation, target string) Option {
	return func(s *Schema) {
		if s.relations == nil {
			s.relations = make(map[string]string)
		}
		s.relations[relation] = target
	}
}

// WithValidator installs a per-value validator.
func WithValidator(fn Validator) Option {
	return func(s *Schema) {
		s.validate = fn
	}
}

// WithStrict makes parse errors for this schema surface to the caller
// instead of silently dropping the offending key.
func WithStrict() Option {
	return func(s *Schema) {
		s.strict = true
	}
}

// Name returns the schema name.
func (s Schema) Name() string { return s.name }

// Strict reports whether errors are surfaced instead of skipped.
func (s Schema) Strict() bool { return s.strict }

// DefaultByElement reports whether unmatched defaults are always emitted.
func (s Schema) DefaultByElement() bool { return s.defaultByElement }

// Allowed returns the allow-list in declaration order and whether one is
// defined at all.
func (s Schema) Allowed() ([]string, bool) {
	if s.allowed == nil {
		return nil, false
	}
	return append([]string{}, s.allowedOrder...), true
}

// Closed reports whether the allow-list is defined and empty.
func (s Schema) Closed() bool {
	return s.allowed != nil && len(s.allowed) == 0
}

// DefaultValues returns the raw default predicates keyed by path, sorted
// path order, and whether defaults are defined.
func (s Schema) DefaultValues() (map[string]any, []string, bool) {
	if s.defaults == nil {
		return nil, nil, false
	}
	keys := make([]string, 0, len(s.defaults))
	for k := range s.defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return s.defaults, keys, true
}

// Map applies the field-name mapping to a leaf name.
func (s Schema) Map(name string) string {
	if mapped, ok := s.mapping[name]; ok {
		return mapped
	}
	return name
}

// RelationTarget returns the schema name a relation resolves to.
func (s Schema) RelationTarget(relation string) string {
	if target, ok := s.relations[relation]; ok {
		return target
	}
	return relation
}

// Relations returns the relation alias table in sorted key order.
func (s Schema) Relations() [][2]string {
	keys := make([]string, 0, len(s.relations))
	for k := range s.relations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, s.relations[k]})
	}
	return out
}

// Valid runs the validator, if any, on a single scalar.
func (s Schema) Valid(path string, v value.Value) bool {
	if s.validate == nil {
		return true
	}
	return s.validate(path, v)
}

// IsAllowed reports whether a schema-local path may be filtered on.
//
// A path is allowed iff
//   - the allow-list is defined and contains it, or
//   - neither allow-list nor defaults are defined and the path is a single
//     syntactically valid name, or
//   - defaults define it.
//
// A closed schema (empty allow-list) allows nothing, regardless of defaults.
func (s Schema) IsAllowed(path string) bool {
	if s.Closed() {
		return false
	}
	if s.allowed != nil {
		if _, ok := s.allowed[path]; ok {
			return true
		}
	}
	if s.defaults != nil {
		if _, ok := s.defaults[path]; ok {
			return true
		}
	}
	if s.allowed == nil && s.defaults == nil {
		return !strings.Contains(path, ".") && ValidName(path)
	}
	return false
}

// QualifiedAllowed returns the allow-list entries qualified by relation,
// with the relation prefix stripped. ok is false when the allow-list has
// no entry under that relation.
func (s Schema) QualifiedAllowed(relation string) (paths []string, ok bool) {
	prefix := relation + "."
	for _, p := range s.allowedOrder {
		if rest, found := strings.CutPrefix(p, prefix); found {
			paths = append(paths, rest)
		}
	}
	return paths, len(paths) > 0
}

// Narrow returns a copy of s whose allow-list is replaced by paths.
func (s Schema) Narrow(paths []string) Schema {
	narrowed := s
	WithAllowed(paths...)(&narrowed)
	return narrowed
}
