package filter

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/schema"
	"github.com/roach88/qfilter/internal/value"
)

// DefaultMaxDepth is the default maximum relation nesting depth.
// "profile.address.zip" has depth 2.
const DefaultMaxDepth = 8

// Parser turns flat filter input into a condition tree.
//
// A Parser holds no per-call state and is safe for concurrent use as long
// as the registry is not modified while parsing.
type Parser struct {
	registry *schema.Registry
	logger   *slog.Logger
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger that receives skipped-key diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithMaxDepth caps relation nesting. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// NewParser creates a Parser resolving schemas and relations through reg.
func NewParser(reg *schema.Registry, opts ...Option) *Parser {
	p := &Parser{
		registry: reg,
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of a successful Parse.
type Result struct {
	// Condition is the reconstructed predicate tree. It is never nil; an
	// empty AND means "no filter".
	Condition condition.Compound

	// Buckets are the grouped field predicates Condition was built from.
	Buckets Buckets

	// Skipped lists the errors dropped in permissive mode, in input order.
	Skipped []*Error
}

// Parse validates input against the named schema and returns the merged
// condition tree.
//
// relations lists the dot-separated relation paths the caller has already
// accepted (typically from an include parameter); predicates on any other
// relation are rejected.
func (p *Parser) Parse(input any, schemaName string, relations []string) (*Result, error) {
	buckets, skipped, err := p.PreParse(input, schemaName, relations)
	if err != nil {
		return nil, err
	}
	return &Result{
		Condition: MergeGroups(buckets),
		Buckets:   buckets,
		Skipped:   skipped,
	}, nil
}

// PreParse validates input and returns the field predicates grouped by
// group key, without reconstructing the tree.
func (p *Parser) PreParse(input any, schemaName string, relations []string) (Buckets, []*Error, error) {
	s, ok := p.registry.Get(schemaName)
	if !ok {
		return nil, nil, fmt.Errorf("schema not found: %s", schemaName)
	}

	r := &run{logger: p.logger}
	buckets, err := p.preParse(r, s, input, relations, "", 0)
	if err != nil {
		return nil, nil, err
	}

	p.logger.Debug("filter parsed",
		"schema", schemaName,
		"groups", len(buckets),
		"fields", buckets.Len(),
		"skipped", len(r.skipped))
	return buckets, r.skipped, nil
}

// run collects per-call state. It is discarded when Parse returns.
type run struct {
	logger  *slog.Logger
	skipped []*Error
}

// fail surfaces err when s is strict and records it as skipped otherwise.
func (r *run) fail(s schema.Schema, err *Error) error {
	if s.Strict() {
		return err
	}
	r.skipped = append(r.skipped, err)
	r.logger.Debug("skipping filter key",
		"schema", s.Name(),
		"code", err.Code,
		"key", err.Key,
		"path", err.Path)
	return nil
}

func (p *Parser) preParse(r *run, s schema.Schema, input any, relations []string, path string, depth int) (Buckets, error) {
	if s.Closed() {
		return defaultBuckets(s, nil)
	}

	object, ok := asObject(input)
	if !ok {
		if _, _, defined := s.DefaultValues(); defined {
			return defaultBuckets(s, nil)
		}
		if err := r.fail(s, newInputInvalidError(path, input)); err != nil {
			return nil, err
		}
		return Buckets{}, nil
	}

	own, related := partition(s.Name(), object)

	buckets := Buckets{}
	matched := make(map[string]bool)

	for _, raw := range sortedKeys(own) {
		field, group, err := p.parseField(s, raw, own[raw], path)
		if err != nil {
			if err := r.fail(s, err); err != nil {
				return nil, err
			}
			continue
		}
		buckets.Add(group, field)
		matched[field.Field] = true
	}

	for _, rel := range sortedKeys(related) {
		sub, err := p.parseRelation(r, s, rel, related[rel], relations, path, depth)
		if err != nil {
			return nil, err
		}
		buckets.Merge(sub)
	}

	if buckets.Len() == 0 {
		return defaultBuckets(s, nil)
	}
	if s.DefaultByElement() {
		defaults, err := defaultBuckets(s, matched)
		if err != nil {
			return nil, err
		}
		buckets.Merge(defaults)
	}
	return buckets, nil
}

// parseField turns one own-bucket entry into a field predicate.
func (p *Parser) parseField(s schema.Schema, raw string, rawValue any, path string) (condition.Field, string, *Error) {
	key, err := ParseKey(raw)
	if err != nil {
		return condition.Field{}, "", asError(err).at(raw, path)
	}

	name := s.Map(key.Name)
	if !s.IsAllowed(name) {
		if !schema.ValidName(name) {
			return condition.Field{}, "", newKeyInvalidError(key.Name, path)
		}
		return condition.Field{}, "", newKeyNotAllowedError(key.Name, path)
	}

	op, operand, err := ParseValue(rawValue)
	if err != nil {
		return condition.Field{}, "", asError(err).at(key.Name, path)
	}

	operand, ok := validate(s, name, operand)
	if !ok {
		return condition.Field{}, "", newValueInvalidError("value rejected by validator").at(key.Name, path)
	}

	return condition.NewField(op, name, operand), key.Group, nil
}

// parseRelation recurses into the schema a relation resolves to and
// returns its predicates with fields re-prefixed by the relation name.
func (p *Parser) parseRelation(r *run, s schema.Schema, rel string, input map[string]any, relations []string, path string, depth int) (Buckets, error) {
	if depth+1 > p.maxDepth {
		return Buckets{}, r.fail(s, newRecursionLimitError(rel, path, p.maxDepth))
	}

	if !includesRelation(relations, rel) {
		return Buckets{}, r.fail(s, newKeyPathInvalidError(rel, path, "relation is not included"))
	}

	target, ok := p.registry.Resolve(s.Name(), rel)
	if !ok {
		return Buckets{}, r.fail(s, newKeyPathInvalidError(rel, path, "relation does not resolve to a schema"))
	}
	if qualified, ok := s.QualifiedAllowed(rel); ok {
		target = target.Narrow(qualified)
	}

	sub, err := p.preParse(r, target, input, subRelations(relations, rel), joinPath(path, rel), depth+1)
	if err != nil {
		return nil, err
	}

	out := make(Buckets, len(sub))
	for group, fields := range sub {
		for _, f := range fields {
			f.Field = rel + "." + f.Field
			out.Add(group, f)
		}
	}
	return out, nil
}

// validate runs the schema validator per scalar. Array elements that fail
// are dropped; ok is false when nothing survives.
func validate(s schema.Schema, path string, operand value.Value) (value.Value, bool) {
	arr, isArray := operand.(value.Array)
	if !isArray {
		return operand, s.Valid(path, operand)
	}

	kept := make(value.Array, 0, len(arr))
	for _, elem := range arr {
		if s.Valid(path, elem) {
			kept = append(kept, elem)
		}
	}
	return kept, len(kept) > 0
}

// Defaults returns the schema's default predicates, each parsed by the
// value grammar exactly as textual input would be.
func Defaults(s schema.Schema) ([]condition.Field, error) {
	buckets, err := defaultBuckets(s, nil)
	if err != nil {
		return nil, err
	}
	var out []condition.Field
	for _, group := range sortedKeys(buckets) {
		out = append(out, buckets[group]...)
	}
	return out, nil
}

// defaultBuckets parses the schema defaults, omitting paths in skip.
func defaultBuckets(s schema.Schema, skip map[string]bool) (Buckets, error) {
	values, keys, defined := s.DefaultValues()
	buckets := Buckets{}
	if !defined {
		return buckets, nil
	}

	for _, raw := range keys {
		key, err := ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("schema %s: default %q: %w", s.Name(), raw, err)
		}
		if skip[key.Field()] {
			continue
		}
		op, operand, err := ParseValue(values[raw])
		if err != nil {
			return nil, fmt.Errorf("schema %s: default %q: %w", s.Name(), raw, err)
		}
		buckets.Add(key.Group, condition.NewField(op, key.Field(), operand))
	}
	return buckets, nil
}

// partition splits input into own keys and per-relation sub-objects.
// Nested objects are flattened into dotted keys first; a leading segment
// equal to the schema name is stripped. A group prefix written before a
// relation path moves onto the relation's key, so "1:profile.age" lands
// in the profile bucket as "1:age".
func partition(name string, input map[string]any) (own map[string]any, related map[string]map[string]any) {
	own = make(map[string]any)
	related = make(map[string]map[string]any)

	flat := make(map[string]any)
	flatten("", input, flat)

	for key, v := range flat {
		group, key := cutGroup(key)
		key = strings.TrimPrefix(key, name+".")
		rel, rest, found := strings.Cut(key, ".")
		if !found {
			own[group+key] = v
			continue
		}
		if related[rel] == nil {
			related[rel] = make(map[string]any)
		}
		related[rel][group+rest] = v
	}
	return own, related
}

// cutGroup splits a leading "<digits>:" off key. The returned prefix keeps
// its colon and is empty when key has none.
func cutGroup(key string) (prefix, rest string) {
	group, name, found := strings.Cut(key, ":")
	if !found || group == "" || !isGroup(group) {
		return "", key
	}
	return group + ":", name
}

func flatten(prefix string, input map[string]any, out map[string]any) {
	for k, v := range input {
		key := joinPath(prefix, k)
		if nested, ok := asObject(v); ok && v != nil {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// asObject accepts the object shapes produced by JSON, YAML and query
// string decoding. nil is an empty object.
func asObject(input any) (map[string]any, bool) {
	switch v := input.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any:
		return v, true
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, true
	case map[string][]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			if len(s) == 1 {
				out[k] = s[0]
			} else {
				out[k] = s
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// includesRelation reports whether rel, or a relation nested under it,
// appears in relations.
func includesRelation(relations []string, rel string) bool {
	for _, r := range relations {
		if r == rel || strings.HasPrefix(r, rel+".") {
			return true
		}
	}
	return false
}

// subRelations returns the relations nested under rel with the rel prefix
// stripped.
func subRelations(relations []string, rel string) []string {
	var out []string
	for _, r := range relations {
		if rest, ok := strings.CutPrefix(r, rel+"."); ok {
			out = append(out, rest)
		}
	}
	return out
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return &Error{Code: CodeValueInvalid, Message: err.Error(), Err: err}
}
