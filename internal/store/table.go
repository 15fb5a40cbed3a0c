package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/querysql"
	"github.com/roach88/qfilter/internal/schema"
	"github.com/roach88/qfilter/internal/value"
)

// Load creates table (if needed) with one column per distinct record key
// and inserts the records. Every record must carry an "id".
func (s *Store) Load(ctx context.Context, table string, records []map[string]any) error {
	columns := columnsOf(records)
	if len(columns) == 0 {
		return fmt.Errorf("load %s: no columns", table)
	}

	if err := validIdents(append([]string{table}, columns...)); err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = `"` + col + `"`
	}
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (%s)`, table, strings.Join(quoted, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	insert := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`,
		table,
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))

	for i, rec := range records {
		if _, ok := rec["id"]; !ok {
			return fmt.Errorf("record %d: missing id", i)
		}
		args := make([]any, len(columns))
		for j, col := range columns {
			v, err := value.FromAny(rec[col])
			if err != nil {
				return fmt.Errorf("record %d: %s: %w", i, col, err)
			}
			if _, isList := v.(value.Array); isList {
				return fmt.Errorf("record %d: %s: lists cannot be stored", i, col)
			}
			args[j] = value.Native(v)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Find returns the rows of table matching cond, ordered by id.
func (s *Store) Find(ctx context.Context, table string, cond condition.Condition) ([]map[string]any, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(querysql.Select{From: table, Filter: cond})
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	result := []map[string]any{}
	for rows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := dest[i].([]byte); ok {
				dest[i] = string(b)
			}
			row[col] = dest[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return result, nil
}

func columnsOf(records []map[string]any) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

// validIdents applies the bare field name rule to table and column names,
// matching what querysql will quote.
func validIdents(names []string) error {
	for _, name := range names {
		if !schema.ValidName(name) {
			return fmt.Errorf("invalid identifier %q", name)
		}
	}
	return nil
}
