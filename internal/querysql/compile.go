package querysql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/value"
)

// identPattern restricts identifiers that are quoted into SQL.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Select describes a single-table query filtered by a condition tree.
type Select struct {
	// From is the table name. It MUST come from configuration, never from
	// request input.
	From string

	// Columns lists the selected columns; empty selects "*".
	Columns []string

	// Filter is the WHERE condition; nil selects every row.
	Filter condition.Condition

	// OrderBy is the tiebreaker column; empty means "id".
	OrderBy string
}

// SQLCompiler compiles condition trees to parameterized SQL for SQLite.
//
// CRITICAL: All values are parameterized (never interpolated).
// CRITICAL: Every SELECT includes ORDER BY for deterministic results.
//
// Field paths become quoted identifiers. Relation-qualified paths are
// qualified by the relation path, so "profile.age" compiles to
// "profile"."age" and a join must alias the related table accordingly.
// Columns overrides the mapping for individual paths.
type SQLCompiler struct {
	Columns map[string]string
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		Columns: make(map[string]string),
	}
}

// Compile converts a Select to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q Select) (string, []any, error) {
	from, err := quoteIdent(q.From)
	if err != nil {
		return "", nil, fmt.Errorf("table: %w", err)
	}

	selectClause := "*"
	if len(q.Columns) > 0 {
		cols := make([]string, 0, len(q.Columns))
		for _, col := range q.Columns {
			quoted, err := c.column(col)
			if err != nil {
				return "", nil, err
			}
			cols = append(cols, quoted)
		}
		selectClause = strings.Join(cols, ", ")
	}

	whereClause := ""
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.Where(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	orderCol, err := c.column(orderBy)
	if err != nil {
		return "", nil, fmt.Errorf("order by: %w", err)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s ASC COLLATE BINARY",
		selectClause,
		from,
		whereClause,
		orderCol)
	return sql, params, nil
}

// Where compiles a condition tree to a WHERE clause fragment.
// An empty AND compiles to "1 = 1" and an empty OR to "1 = 0".
func (c *SQLCompiler) Where(cond condition.Condition) (string, []any, error) {
	if cond == nil {
		return "1 = 1", nil, nil
	}

	switch node := cond.(type) {
	case condition.Field:
		return c.compileField(node)
	case *condition.Field:
		return c.compileField(*node)
	case condition.Compound:
		return c.compileCompound(node)
	case *condition.Compound:
		return c.compileCompound(*node)
	default:
		return "", nil, fmt.Errorf("unsupported condition type: %T", cond)
	}
}

func (c *SQLCompiler) compileCompound(cc condition.Compound) (string, []any, error) {
	var sep, empty string
	switch cc.Operator {
	case condition.And:
		sep, empty = " AND ", "1 = 1"
	case condition.Or:
		sep, empty = " OR ", "1 = 0"
	default:
		return "", nil, fmt.Errorf("unknown logic %q", cc.Operator)
	}

	if len(cc.Children) == 0 {
		return empty, nil, nil
	}

	var parts []string
	var allParams []any
	for _, child := range cc.Children {
		sql, params, err := c.Where(child)
		if err != nil {
			return "", nil, err
		}
		if _, nested := child.(condition.Compound); nested && len(cc.Children) > 1 {
			sql = "(" + sql + ")"
		} else if _, nested := child.(*condition.Compound); nested && len(cc.Children) > 1 {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		allParams = append(allParams, params...)
	}
	return strings.Join(parts, sep), allParams, nil
}

// compileField compiles one predicate.
//
// Equality is null-aware: eq null is IS NULL, and ne uses IS NOT so rows
// holding NULL satisfy "ne x". Lists containing null add an IS NULL arm.
func (c *SQLCompiler) compileField(f condition.Field) (string, []any, error) {
	col, err := c.column(f.Field)
	if err != nil {
		return "", nil, err
	}

	switch f.Operator {
	case condition.Equal, condition.NotEqual:
		return compileEquality(col, f)
	case condition.LessThan, condition.LessThanEqual, condition.GreaterThan, condition.GreaterThanEqual:
		param, err := toParam(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", f.Field, err)
		}
		return fmt.Sprintf("%s %s ?", col, orderingSQL[f.Operator]), []any{param}, nil
	case condition.In, condition.NotIn:
		return compileMembership(col, f)
	case condition.Regex:
		pattern, ok := f.Value.(value.String)
		if !ok {
			return "", nil, fmt.Errorf("%s: regex operand must be a string, got %T", f.Field, f.Value)
		}
		return fmt.Sprintf("%s REGEXP ?", col), []any{string(pattern)}, nil
	default:
		return "", nil, fmt.Errorf("%s: unsupported operator %q", f.Field, f.Operator)
	}
}

var orderingSQL = map[condition.Operator]string{
	condition.LessThan:         "<",
	condition.LessThanEqual:    "<=",
	condition.GreaterThan:      ">",
	condition.GreaterThanEqual: ">=",
}

func compileEquality(col string, f condition.Field) (string, []any, error) {
	if _, isNull := f.Value.(value.Null); isNull {
		if f.Operator == condition.Equal {
			return col + " IS NULL", nil, nil
		}
		return col + " IS NOT NULL", nil, nil
	}

	param, err := toParam(f.Value)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", f.Field, err)
	}
	if f.Operator == condition.Equal {
		return col + " = ?", []any{param}, nil
	}
	return col + " IS NOT ?", []any{param}, nil
}

func compileMembership(col string, f condition.Field) (string, []any, error) {
	list, ok := f.Value.(value.Array)
	if !ok {
		return "", nil, fmt.Errorf("%s: %s operand must be a list, got %T", f.Field, f.Operator, f.Value)
	}

	hasNull := false
	var params []any
	for _, elem := range list {
		if _, isNull := elem.(value.Null); isNull {
			hasNull = true
			continue
		}
		param, err := toParam(elem)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", f.Field, err)
		}
		params = append(params, param)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
	in := f.Operator == condition.In

	switch {
	case len(params) == 0 && !hasNull:
		if in {
			return "1 = 0", nil, nil
		}
		return "1 = 1", nil, nil
	case len(params) == 0:
		if in {
			return col + " IS NULL", nil, nil
		}
		return col + " IS NOT NULL", nil, nil
	case in && hasNull:
		return fmt.Sprintf("(%s IN (%s) OR %s IS NULL)", col, placeholders, col), params, nil
	case in:
		return fmt.Sprintf("%s IN (%s)", col, placeholders), params, nil
	case hasNull:
		return fmt.Sprintf("(%s IS NOT NULL AND %s NOT IN (%s))", col, col, placeholders), params, nil
	default:
		return fmt.Sprintf("(%s IS NULL OR %s NOT IN (%s))", col, col, placeholders), params, nil
	}
}

// column maps a field path to a quoted column reference.
func (c *SQLCompiler) column(path string) (string, error) {
	if mapped, ok := c.Columns[path]; ok {
		return mapped, nil
	}

	rel, name := "", path
	if i := strings.LastIndex(path, "."); i >= 0 {
		rel, name = path[:i], path[i+1:]
	}

	quoted, err := quoteIdent(name)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return quoted, nil
	}
	for _, segment := range strings.Split(rel, ".") {
		if !identPattern.MatchString(segment) {
			return "", fmt.Errorf("invalid identifier %q", segment)
		}
	}
	return `"` + rel + `".` + quoted, nil
}

func quoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

// toParam converts a scalar operand to a Go native type for a SQL
// parameter.
func toParam(v value.Value) (any, error) {
	switch val := v.(type) {
	case value.String:
		return string(val), nil
	case value.Int:
		return int64(val), nil
	case value.Float:
		return float64(val), nil
	case value.Bool:
		return bool(val), nil
	case value.Null:
		return nil, nil
	case value.Array:
		return nil, fmt.Errorf("list cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
