package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/filter"
	"github.com/roach88/qfilter/internal/querysql"
	"github.com/roach88/qfilter/internal/querystring"
)

// ParseOptions holds flags shared by the parse and sql commands.
type ParseOptions struct {
	*RootOptions
	SchemasDir string
	Schema     string
	Include    []string
	MaxDepth   int

	// sql only
	Table string
}

// ParseResult is the payload of the parse command.
type ParseResult struct {
	Schema    string              `json:"schema"`
	Condition condition.Condition `json:"condition"`
	Buckets   filter.Buckets      `json:"buckets"`
	Skipped   []*filter.Error     `json:"skipped"`
}

func (r ParseResult) String() string {
	var sb strings.Builder
	sb.WriteString(condition.Format(r.Condition))
	for _, s := range r.Skipped {
		sb.WriteString("\nskipped: ")
		sb.WriteString(s.Error())
	}
	return sb.String()
}

// SQLResult is the payload of the sql command.
type SQLResult struct {
	ParseResult
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

func (r SQLResult) String() string {
	var sb strings.Builder
	sb.WriteString(r.SQL)
	for i, p := range r.Params {
		fmt.Fprintf(&sb, "\n  $%d = %#v", i+1, p)
	}
	for _, s := range r.Skipped {
		sb.WriteString("\nskipped: ")
		sb.WriteString(s.Error())
	}
	return sb.String()
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a filter query string into a condition tree",
		Long: `Parse the filter parameters of a URL query string against a schema and
print the reconstructed condition tree.

Keys dropped by permissive schemas are listed as skipped. Strict schemas
reject the whole query instead (exit code 1).

Examples:
  qfilter parse --schemas ./schemas --schema user 'filter[name]=~ada'
  qfilter parse --schemas ./schemas --schema user --include profile \
    'filter[0:id]=1&filter[1:profile][age]=>=18'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			res, err := runParse(opts, formatter, args[0])
			if err != nil {
				return err
			}
			return formatter.Success(*res)
		},
	}

	addParseFlags(cmd, opts)
	return cmd
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Compile a filter query string to SQLite SQL",
		Long: `Parse the filter parameters of a URL query string and compile the
condition tree to a parameterized SELECT.

The table defaults to the schema name.

Example:
  qfilter sql --schemas ./schemas --schema user 'filter[age]=>18&filter[role]=admin,staff'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			res, err := runParse(opts, formatter, args[0])
			if err != nil {
				return err
			}

			table := opts.Table
			if table == "" {
				table = opts.Schema
			}
			sql, params, err := querysql.NewSQLCompiler().Compile(querysql.Select{
				From:   table,
				Filter: res.Condition,
			})
			if err != nil {
				return formatter.Fail(ExitFailure, "compile_failed", err.Error(), nil)
			}
			if params == nil {
				params = []any{}
			}
			return formatter.Success(SQLResult{ParseResult: *res, SQL: sql, Params: params})
		},
	}

	addParseFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Table, "table", "", "table name (defaults to the schema name)")
	return cmd
}

func addParseFlags(cmd *cobra.Command, opts *ParseOptions) {
	cmd.Flags().StringVar(&opts.SchemasDir, "schemas", "schemas", "directory of CUE schema files")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema to parse against (required)")
	cmd.Flags().StringSliceVar(&opts.Include, "include", nil, "relation paths to accept, in addition to the include parameter")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", filter.DefaultMaxDepth, "maximum relation nesting depth")
	_ = cmd.MarkFlagRequired("schema")
}

func runParse(opts *ParseOptions, formatter *OutputFormatter, query string) (*ParseResult, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, "E001", fmt.Sprintf("invalid query string: %v", err), nil)
	}

	loaded, err := loadSchemas(formatter, opts.SchemasDir)
	if err != nil {
		return nil, err
	}
	if _, ok := loaded.Registry.Get(opts.Schema); !ok {
		return nil, formatter.Fail(ExitCommandError, "schema_not_found",
			fmt.Sprintf("unknown schema %s (have %s)", opts.Schema, strings.Join(loaded.Registry.Names(), ", ")), nil)
	}

	parser := filter.NewParser(loaded.Registry,
		filter.WithLogger(commandLogger(formatter)),
		filter.WithMaxDepth(opts.MaxDepth))

	input := querystring.Decode(values)
	relations := append(querystring.Relations(values), opts.Include...)
	formatter.VerboseLog("Parsing %d key(s) with relations %v", len(input), relations)

	res, err := parser.Parse(input, opts.Schema, relations)
	if err != nil {
		var fe *filter.Error
		if errors.As(err, &fe) {
			return nil, formatter.Fail(ExitFailure, string(fe.Code), fe.Error(), fe)
		}
		return nil, formatter.Fail(ExitCommandError, "E001", err.Error(), nil)
	}

	skipped := res.Skipped
	if skipped == nil {
		skipped = []*filter.Error{}
	}
	return &ParseResult{
		Schema:    opts.Schema,
		Condition: res.Condition,
		Buckets:   res.Buckets,
		Skipped:   skipped,
	}, nil
}
